package transcription

import (
	"context"
	"time"

	"github.com/kbukum/transcriber/component"
)

const probeTimeout = 3 * time.Second

// Component reports the backend's reachability. It is not critical: a
// down sidecar fails work units, it does not stop intake.
type Component struct {
	provider Provider
	cfg      Config
}

// NewComponent wraps p for the component registry.
func NewComponent(p Provider, cfg Config) *Component {
	return &Component{provider: p, cfg: cfg}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func (c *Component) Name() string                { return "transcription" }
func (c *Component) Start(context.Context) error { return nil }
func (c *Component) Stop(context.Context) error  { return nil }

func (c *Component) Health(ctx context.Context) component.Health {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.provider.IsAvailable(ctx) {
		h.Status = component.StatusDegraded
		h.Message = c.provider.Name() + " backend not reachable at " + c.cfg.URL
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "transcription",
		Details: c.provider.Name() + " " + c.cfg.URL + " model=" + c.cfg.Model,
	}
}
