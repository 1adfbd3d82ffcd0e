package transcription

import (
	"context"
	"fmt"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	// Name returns the registered provider name.
	Name() string
	// IsAvailable reports whether the backend answers its health probe.
	IsAvailable(ctx context.Context) bool
	// Transcribe sends audio for transcription and returns the result.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}

// Factory creates a provider from config.
type Factory func(cfg Config) (Provider, error)

var factories = make(map[string]Factory)

// RegisterFactory makes a backend selectable by name. Backend packages call
// it from init.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// New creates the provider selected by cfg.Provider.
func New(cfg Config) (Provider, error) {
	cfg.ApplyDefaults()
	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("transcription: unsupported provider %q (not registered)", cfg.Provider)
	}
	return f(cfg)
}
