package store

import "fmt"

// Backends
const (
	BackendRedis = "redis"
	BackendSQL   = "sql"
)

// Config selects the metadata store backend. Connection settings live in
// the redis and database sections.
type Config struct {
	Backend string `mapstructure:"backend"`
}

// ApplyDefaults sets the Redis backend when none is chosen.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
}

// Validate checks the backend name.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRedis, BackendSQL:
		return nil
	}
	return fmt.Errorf("store: unknown backend %q", c.Backend)
}
