package database

import (
	"errors"
	"fmt"
	"time"
)

// DriverSQLite is the only driver compiled in.
const DriverSQLite = "sqlite"

// Config is the database section used by the SQL record store backend.
type Config struct {
	Driver string `mapstructure:"driver"`
	// DSN is the sqlite connection string, e.g. "file:transcriber.db".
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// BusyTimeout is how long sqlite waits on a locked database before
	// failing a statement with SQLITE_BUSY.
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	// WAL switches file databases to write-ahead logging so the API can
	// read records while a worker writes.
	WAL bool `mapstructure:"wal"`

	// ConnectAttempts counts the first try.
	ConnectAttempts int `mapstructure:"connect_attempts"`

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("database.driver must be %q (got %q)", DriverSQLite, c.Driver))
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errs = append(errs, fmt.Errorf("database.max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns))
	}
	return errors.Join(errs...)
}
