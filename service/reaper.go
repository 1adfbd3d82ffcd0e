package service

import (
	"context"

	"github.com/kbukum/transcriber/bootstrap"
	"github.com/kbukum/transcriber/reaper"
)

// ConfigureReaper wires a one-shot retention sweep and returns it for
// App.RunTask. The sweep ignores cache.reaper_enabled; running the binary
// is the opt-in.
func ConfigureReaper(app *bootstrap.App[*Config]) (func(ctx context.Context) error, error) {
	infra, err := Register(app)
	if err != nil {
		return nil, err
	}
	var r *reaper.Reaper
	app.OnConfigure(func(_ context.Context, a *bootstrap.App[*Config]) error {
		r = reaper.New(infra.Tasks(), infra.Cache, a.Cfg.Cache.Retention(), a.Logger, reaper.WithMetrics(infra.Metrics))
		return nil
	})
	return func(ctx context.Context) error {
		_, err := r.Sweep(ctx)
		return err
	}, nil
}
