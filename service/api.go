package service

import (
	"context"
	"fmt"

	"github.com/kbukum/transcriber/api"
	"github.com/kbukum/transcriber/bootstrap"
	"github.com/kbukum/transcriber/dispatch"
	"github.com/kbukum/transcriber/gateway"
	"github.com/kbukum/transcriber/httpclient"
	"github.com/kbukum/transcriber/ingress"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/reaper"
	"github.com/kbukum/transcriber/server"
	"github.com/kbukum/transcriber/server/middleware"
)

// ConfigureAPI wires the HTTP process. The server starts last, once the
// store and the broker are reachable.
func ConfigureAPI(app *bootstrap.App[*Config]) error {
	infra, err := Register(app)
	if err != nil {
		return err
	}
	producer := queue.NewComponent(queue.RedisOpt(app.Cfg.Redis), app.Cfg.Queue, app.Logger)
	if err := app.RegisterComponent(producer); err != nil {
		return err
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		cfg := a.Cfg
		tasks := infra.Tasks()
		objects := infra.Objects()

		client, err := httpclient.New(cfg.Ingress)
		if err != nil {
			return fmt.Errorf("ingress client: %w", err)
		}

		handler := api.New(
			dispatch.New(tasks, producer.Client(), infra.Cache, objects != nil, a.Logger,
				dispatch.WithMetrics(infra.Metrics)),
			gateway.New(tasks, infra.Cache, cfg.Gateway, a.Logger,
				gateway.WithInspector(producer.Inspector()),
				gateway.WithMetrics(infra.Metrics)),
			ingress.New(infra.Cache, client, objects, a.Logger),
			a.Logger,
		)

		srv := server.New(cfg.Server, a.Logger)
		srv.ApplyMiddleware()
		srv.GinEngine().Use(middleware.Metrics(infra.Metrics))
		srv.RegisterDefaultEndpoints(a.Name, a.Components.HealthAll)
		handler.Register(srv.GinEngine())

		if cfg.Cache.Reaper() {
			r := reaper.New(tasks, infra.Cache, cfg.Cache.Retention(), a.Logger, reaper.WithMetrics(infra.Metrics))
			if err := a.StartComponent(ctx, reaper.NewScheduler(r, cfg.Cache.ReaperSchedule, a.Logger)); err != nil {
				return err
			}
		}
		return a.StartComponent(ctx, server.NewComponent(srv))
	})
	return nil
}
