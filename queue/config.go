package queue

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kbukum/transcriber/redis"
	"github.com/kbukum/transcriber/util"
)

// Default configuration values.
const (
	DefaultQueue       = "transcription"
	DefaultConcurrency = 1
	DefaultMaxRetry    = 3
	DefaultTimeout     = 2 * time.Hour
	DefaultRetention   = 24 * time.Hour
)

// Config holds queue settings. The broker connection comes from the redis
// section.
type Config struct {
	Queue string `mapstructure:"queue"`
	// Concurrency is the number of worker slots in one worker process.
	Concurrency int `mapstructure:"concurrency"`
	// MaxRetry bounds redeliveries after worker loss or transient errors.
	// Unset means DefaultMaxRetry; 0 disables redelivery.
	MaxRetry *int `mapstructure:"max_retry"`
	// Timeout is the longest a single delivery may run.
	Timeout time.Duration `mapstructure:"timeout"`
	// Retention keeps finished task info around for the debug view.
	Retention time.Duration `mapstructure:"retention"`
	// ShutdownTimeout is how long Stop waits for in-flight work.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxRetry == nil {
		c.MaxRetry = util.Ptr(DefaultMaxRetry)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Queue == "" {
		return errors.New("queue: queue name is required")
	}
	if c.Concurrency < 1 {
		return errors.New("queue: concurrency must be at least 1")
	}
	if c.Retries() < 0 {
		return errors.New("queue: max_retry must not be negative")
	}
	return nil
}

// Retries returns MaxRetry, or DefaultMaxRetry when unset.
func (c *Config) Retries() int {
	if c.MaxRetry == nil {
		return DefaultMaxRetry
	}
	return *c.MaxRetry
}

// RedisOpt converts the shared Redis settings into an asynq connection option.
func RedisOpt(cfg redis.Config) asynq.RedisClientOpt {
	o := cfg.Options()
	return asynq.RedisClientOpt{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
	}
}

func logLevel(s string) asynq.LogLevel {
	switch s {
	case "debug":
		return asynq.DebugLevel
	case "info":
		return asynq.InfoLevel
	case "error":
		return asynq.ErrorLevel
	case "fatal":
		return asynq.FatalLevel
	}
	return asynq.WarnLevel
}
