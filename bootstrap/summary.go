package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

// logSummary logs one line per component with its description and health,
// then the overall status.
func (a *App[C]) logSummary(ctx context.Context, startup time.Duration) {
	healths := a.Components.HealthAll(ctx)
	byName := make(map[string]component.Health, len(healths))
	for _, h := range healths {
		byName[h.Name] = h
	}

	for _, c := range a.Components.All() {
		fields := logger.Fields("component", c.Name())
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
			if desc.Port > 0 {
				fields["port"] = desc.Port
			}
		}
		if h, ok := byName[c.Name()]; ok {
			fields["status"] = string(h.Status)
			if h.Message != "" {
				fields["message"] = h.Message
			}
		}
		a.Logger.Info("Component", fields)
	}

	a.Logger.Info("Startup complete", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		"components", len(healths),
		"status", string(component.Overall(healths)),
		"startup", startup.String(),
	))
}
