package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/transcriber/logger"
)

// Factory creates a Storage implementation from config.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var factories = make(map[string]Factory)

// RegisterFactory registers a storage backend factory for the given provider name.
// Implementation packages call this in an init function.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New creates a Storage for cfg.Provider. Import the provider package
// (e.g. _ "github.com/kbukum/transcriber/storage/s3") so its factory is registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("storage: provider %q is not fully configured", cfg.Provider)
	}

	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	log.Info("initializing storage", map[string]interface{}{"provider": cfg.Provider, "bucket": cfg.Bucket})
	return f(ctx, cfg, log)
}
