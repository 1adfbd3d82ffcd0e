package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/transcriber/resilience"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a whole exchange, body included. Defaults to 30s.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRedirects caps followed redirects. Defaults to 10.
	MaxRedirects int               `mapstructure:"max_redirects"`
	UserAgent    string            `mapstructure:"user_agent"`
	Headers      map[string]string `mapstructure:"headers"`

	// Retry re-sends bodiless requests that failed with a retryable error.
	// Nil disables retry.
	Retry *resilience.RetryConfig `mapstructure:"-"`
	// CircuitBreaker fails fast after repeated retryable errors. Nil
	// disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}

// DefaultRetryConfig retries only errors classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig counts only retryable errors as failures.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsRetryable
	return &cfg
}
