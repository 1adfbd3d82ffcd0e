package store

import (
	"context"
	"errors"
	"strings"

	"github.com/kbukum/transcriber/redis"
)

// RedisStore keeps each document as a plain string value at its key.
// Versioned writes run inside WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on an already connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.client.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrNotFound
	case err != nil:
		return nil, unavailable("get", err)
	}
	return doc, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, doc []byte, expected int64) error {
	if err := checkNextVersion(doc, expected); err != nil {
		return err
	}
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := s.checkVersion(ctx, tx, key, expected); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, doc, 0)
			return nil
		})
		return err
	}, key)
	return s.translate("put", err)
}

func (s *RedisStore) Delete(ctx context.Context, key string, expected int64) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := s.checkVersion(ctx, tx, key, expected); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return s.translate("delete", err)
}

// checkVersion compares the watched document's version with expected.
// A missing key matches expected == 0 for Put and is ErrNotFound otherwise.
func (s *RedisStore) checkVersion(ctx context.Context, tx *redis.Tx, key string, expected int64) error {
	current, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		if expected == 0 {
			return nil
		}
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if expected == 0 {
		return ErrVersionConflict
	}
	v, err := documentVersion(current)
	if err != nil {
		return err
	}
	if v != expected {
		return ErrVersionConflict
	}
	return nil
}

func (s *RedisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.client.ScanKeys(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, unavailable("list", err)
	}
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *RedisStore) translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.ErrTxConflict):
		return ErrVersionConflict
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		return err
	}
	return unavailable(op, err)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
