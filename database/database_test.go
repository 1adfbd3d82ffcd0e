package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/transcriber/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{DSN: "file::memory:"}
	cfg.ApplyDefaults()
	if cfg.Driver != DriverSQLite || cfg.ConnectAttempts != 3 || cfg.BusyTimeout != 5*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing dsn", Config{Driver: DriverSQLite}},
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}},
		{"idle above open", Config{Driver: DriverSQLite, DSN: "x", MaxOpenConns: 1, MaxIdleConns: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.cfg
			c.ApplyDefaults()
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestComponentLifecycle(t *testing.T) {
	ctx := context.Background()
	comp := NewComponent(Config{DSN: "file:lifecycle?mode=memory&cache=shared", LogLevel: "silent"}, logger.Nop()).
		WithAutoMigrate(&widget{})

	if h := comp.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if h := comp.Health(ctx); h.Status != "healthy" {
		t.Errorf("expected healthy, got %+v", h)
	}

	err := comp.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&widget{ID: 1, Name: "a"}).Error; err != nil {
			return err
		}
		return tx.Create(&widget{ID: 1, Name: "b"}).Error
	})
	if !IsDuplicateError(err) {
		t.Errorf("expected translated duplicate key error, got %v", err)
	}

	var count int64
	comp.DB().WithContext(ctx).Model(&widget{}).Count(&count)
	if count != 0 {
		t.Errorf("failed transaction should roll back, found %d rows", count)
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}

func TestNewCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ctx, Config{DSN: "file::memory:"}, logger.Nop()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsConnectionError(fmt.Errorf("dial tcp: connection refused")) {
		t.Error("connection refused should be a connection error")
	}
	if IsConnectionError(fmt.Errorf("syntax error near SELECT")) {
		t.Error("syntax error is not a connection error")
	}
	if IsConnectionError(nil) {
		t.Error("nil is not a connection error")
	}
	if IsConnectionError(fmt.Errorf("database is locked")) {
		t.Error("lock contention is not a connection error")
	}
	for _, msg := range []string{"database is locked (5) (SQLITE_BUSY)", "database table is locked", "SQLITE_LOCKED"} {
		if !IsBusyError(fmt.Errorf("%s", msg)) {
			t.Errorf("IsBusyError(%q) = false", msg)
		}
	}
	if IsBusyError(fmt.Errorf("UNIQUE constraint failed")) || IsBusyError(nil) {
		t.Error("IsBusyError matched a non-busy error")
	}
	for _, code := range []sqlite3.ErrNo{sqlite3.ErrBusy, sqlite3.ErrLocked} {
		if !IsBusyError(fmt.Errorf("exec: %w", sqlite3.Error{Code: code})) {
			t.Errorf("IsBusyError(sqlite3 code %d) = false", code)
		}
	}
	if IsBusyError(sqlite3.Error{Code: sqlite3.ErrConstraint}) {
		t.Error("constraint violation is not lock contention")
	}
	if !IsNotFoundError(fmt.Errorf("wrap: %w", gorm.ErrRecordNotFound)) {
		t.Error("wrapped ErrRecordNotFound should be detected")
	}
}

func TestQueryLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		took      time.Duration
		err       error
		wantLevel string
		wantMsg   string
	}{
		{"failure", 0, errors.New("no such table: tasks"), "error", "query failed"},
		{"busy", 0, errors.New("database is locked"), "warn", "database busy"},
		{"slow", time.Second, nil, "warn", "slow query"},
		{"missing row is quiet", 0, gorm.ErrRecordNotFound, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "test", &buf)
			q := newQueryLog(log, 100*time.Millisecond, gormlogger.Warn)

			q.Trace(context.Background(), time.Now().Add(-tc.took), func() (string, int64) {
				return "SELECT * FROM tasks", 0
			}, tc.err)

			if tc.wantMsg == "" {
				if buf.Len() != 0 {
					t.Fatalf("expected no output, got %s", buf.String())
				}
				return
			}
			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode %q: %v", buf.String(), err)
			}
			if entry["level"] != tc.wantLevel || entry["message"] != tc.wantMsg {
				t.Errorf("got %v/%v, want %s/%s", entry["level"], entry["message"], tc.wantLevel, tc.wantMsg)
			}
			if entry["sql"] != "SELECT * FROM tasks" {
				t.Errorf("sql field = %v", entry["sql"])
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("INFO") != gormlogger.Info || parseLogLevel("silent") != gormlogger.Silent {
		t.Error("known levels not mapped")
	}
	if parseLogLevel("verbose") != gormlogger.Warn {
		t.Error("unknown level should fall back to warn")
	}
}

func TestNewAppliesPragmas(t *testing.T) {
	db, err := New(context.Background(), Config{
		DSN:         "file:" + t.TempDir() + "/tasks.db",
		WAL:         true,
		BusyTimeout: 1500 * time.Millisecond,
		LogLevel:    "silent",
	}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var busy int64
	if err := db.WithContext(context.Background()).Raw("PRAGMA busy_timeout").Scan(&busy).Error; err != nil {
		t.Fatal(err)
	}
	if busy != 1500 {
		t.Errorf("busy_timeout = %d, want 1500", busy)
	}
	var mode string
	if err := db.WithContext(context.Background()).Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:tasks.db", "file:tasks.db?_busy_timeout=2000"},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared&_busy_timeout=2000"},
		{"file:tasks.db?_busy_timeout=9000", "file:tasks.db?_busy_timeout=9000"},
	}
	for _, tc := range tests {
		if got := sqliteDSN(Config{DSN: tc.dsn, BusyTimeout: 2 * time.Second}); got != tc.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tc.dsn, got, tc.want)
		}
	}
}
