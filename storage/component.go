package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/util"
)

// Component owns the Storage for the process lifetime. An unconfigured
// storage is not an error: Storage returns nil and sink requests are refused.
type Component struct {
	storage Storage
	cfg     Config
	log     *logger.Logger
}

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("storage"),
	}
}

// Storage returns the underlying Storage, or nil if not configured or not started.
func (c *Component) Storage() Storage {
	return c.storage
}

// Config returns the effective configuration.
func (c *Component) Config() Config { return c.cfg }

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start initializes the storage backend.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.IsConfigured() {
		c.log.Warn("object storage is not configured; results sink and object ingress are disabled",
			map[string]interface{}{"provider": c.cfg.Provider})
		return nil
	}

	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

// Stop releases the backend.
func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

// Health probes the bucket when the backend supports it.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.IsConfigured() {
		h.Message = "not configured"
		return h
	}
	if c.storage == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "storage not initialized"
		return h
	}
	if p, ok := c.storage.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.Status = component.StatusDegraded
			h.Message = fmt.Sprintf("health probe failed: %v", err)
		}
	}
	return h
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s", c.cfg.Provider)
	if c.cfg.Bucket != "" {
		details += fmt.Sprintf(" bucket=%s", c.cfg.Bucket)
	}
	if c.cfg.AccessKey != "" {
		details += fmt.Sprintf(" access_key=%s", util.MaskSecret(c.cfg.AccessKey, 4))
	}
	if !c.cfg.IsConfigured() {
		details += " (not configured)"
	}
	return component.Description{
		Name:    "Storage",
		Type:    "storage",
		Details: details,
	}
}
