package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/resilience"
)

// DB is an open GORM handle plus the settings it was opened with.
type DB struct {
	GormDB *gorm.DB

	log       *logger.Logger
	cfg       Config
	closeOnce sync.Once
	closeErr  error
}

// Dialector maps the configured driver to its GORM dialector.
func Dialector(cfg Config) (gorm.Dialector, error) {
	if cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return sqlite.Open(sqliteDSN(cfg)), nil
}

// sqliteDSN adds the busy timeout as a driver parameter so every pooled
// connection gets it, not only the one a PRAGMA would run on.
func sqliteDSN(cfg Config) string {
	if strings.Contains(cfg.DSN, "_busy_timeout=") || cfg.BusyTimeout <= 0 {
		return cfg.DSN
	}
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", cfg.DSN, sep, cfg.BusyTimeout.Milliseconds())
}

// New opens the database, retrying connection and lock errors with backoff,
// and applies pool limits and sqlite settings.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	gcfg := &gorm.Config{
		Logger:         newQueryLog(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.ConnectAttempts,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2,
		RetryIf:        func(err error) bool { return IsConnectionError(err) || IsBusyError(err) },
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.WithError(err).Warn("database connection failed, retrying",
				logger.Fields("attempt", attempt, "backoff", wait.String()))
		},
	}
	gdb, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		return connect(ctx, dialector, gcfg, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connection established", logger.Fields("driver", cfg.Driver, "wal", cfg.WAL))
	return &DB{GormDB: gdb, log: log, cfg: cfg}, nil
}

func connect(ctx context.Context, dialector gorm.Dialector, gcfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	// journal_mode is stored in the database file, so one connection is enough.
	if cfg.WAL {
		if err := gdb.WithContext(ctx).Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return gdb, nil
}

// Close releases the pool. Later calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		sqlDB, err := d.GormDB.DB()
		if err != nil {
			d.closeErr = err
			return
		}
		d.log.Info("Closing database connection")
		d.closeErr = sqlDB.Close()
	})
	return d.closeErr
}

func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext starts a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters the tables for models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	if err := d.GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	d.log.Debug("Auto-migration completed", logger.Fields("models", len(models)))
	return nil
}
