package bootstrap

import (
	"time"

	"github.com/kbukum/transcriber/logger"
)

type Option func(*options)

type options struct {
	log   *logger.Logger
	grace time.Duration
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithGracefulTimeout bounds shutdown. Zero or less keeps the 15s default.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}
