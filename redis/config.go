package redis

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config is the redis section. The same settings serve the record store,
// the asynq queue and the inspector, so they always point at one server.
type Config struct {
	// URL ("redis://:pass@host:6379/2") overrides Addr, Password and DB.
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	// MaxRetries is go-redis's per-command retry count.
	MaxRetries int `mapstructure:"max_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ScanCount is the COUNT hint used when listing task keys.
	ScanCount int `mapstructure:"scan_count"`
	// StartAttempts is how often Start pings before giving up.
	StartAttempts int `mapstructure:"start_attempts"`
}

func (c *Config) ApplyDefaults() {
	if c.Addr == "" && c.URL == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.ScanCount <= 0 {
		c.ScanCount = 100
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = 5
	}
}

func (c *Config) Validate() error {
	if c.URL != "" {
		if _, err := goredis.ParseURL(c.URL); err != nil {
			return fmt.Errorf("redis.url: %w", err)
		}
	} else if c.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("redis.min_idle_conns (%d) exceeds pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}
	return nil
}

// Options builds go-redis options. A URL that fails to parse is ignored
// here; Validate reports it.
func (c Config) Options() *goredis.Options {
	o := &goredis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if c.URL != "" {
		if parsed, err := goredis.ParseURL(c.URL); err == nil {
			o = parsed
		}
	}
	o.PoolSize = c.PoolSize
	o.MinIdleConns = c.MinIdleConns
	o.MaxRetries = c.MaxRetries
	o.DialTimeout = c.DialTimeout
	o.ReadTimeout = c.ReadTimeout
	o.WriteTimeout = c.WriteTimeout
	return o
}
