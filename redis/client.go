package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/transcriber/logger"
)

// Nil is returned by Get when the key does not exist.
var Nil = goredis.Nil

// ErrTxConflict is returned by Watch when a watched key changed before EXEC.
var ErrTxConflict = errors.New("redis: watched key modified")

// Tx is the transaction handle passed to Watch callbacks.
type Tx = goredis.Tx

// Pipeliner queues commands inside Tx.TxPipelined.
type Pipeliner = goredis.Pipeliner

// Client wraps a go-redis client with logging and idempotent Close.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a Redis client. The connection is not checked; call Ping.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	opts := cfg.Options()
	log.Debug("Redis client created", logger.Fields("addr", opts.Addr, "db", opts.DB))
	return &Client{rdb: goredis.NewClient(opts), log: log, cfg: cfg}, nil
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Get returns the raw bytes stored at key, or Nil when absent.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists checks if one or more keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// Watch runs fn under WATCH on keys. Writes queued with tx.TxPipelined are
// applied atomically only if none of the keys changed; otherwise Watch
// returns ErrTxConflict.
func (c *Client) Watch(ctx context.Context, fn func(tx *Tx) error, keys ...string) error {
	err := c.rdb.Watch(ctx, fn, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		return ErrTxConflict
	}
	return err
}

// ScanKeys returns every key matching pattern using SCAN, so large
// keyspaces do not block the server the way KEYS does.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, int64(c.cfg.ScanCount)).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	return keys, nil
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for advanced operations.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
