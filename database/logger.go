package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/transcriber/logger"
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// parseLogLevel reads the database log_level setting. SQL statements are
// only logged at "info"; anything unrecognised means warn.
func parseLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Warn
}

// queryLog routes gorm's output into the service logger. Record store
// queries are small and frequent, so successful statements stay at debug
// and lock contention is reported apart from real failures.
type queryLog struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLog(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) *queryLog {
	return &queryLog{log: log.WithComponent("gorm"), level: level, slow: slow}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLog) Info(_ context.Context, format string, args ...interface{}) {
	if q.level >= gormlogger.Info {
		q.log.Info(fmt.Sprintf(format, args...))
	}
}

func (q *queryLog) Warn(_ context.Context, format string, args ...interface{}) {
	if q.level >= gormlogger.Warn {
		q.log.Warn(fmt.Sprintf(format, args...))
	}
}

func (q *queryLog) Error(_ context.Context, format string, args ...interface{}) {
	if q.level >= gormlogger.Error {
		q.log.Error(fmt.Sprintf(format, args...))
	}
}

func (q *queryLog) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level == gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	stmt, rows := fc()
	fields := logger.Fields("sql", stmt, "rows", rows, logger.FieldDuration, took.Milliseconds())

	switch {
	case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
		if q.slow > 0 && took > q.slow {
			q.log.Warn("slow query", fields)
		} else if q.level >= gormlogger.Info {
			q.log.Debug("query", fields)
		}
	case IsBusyError(err):
		q.log.WithError(err).Warn("database busy", fields)
	default:
		q.log.WithError(err).Error("query failed", fields)
	}
}
