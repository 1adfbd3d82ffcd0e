// Package bootstrap runs a transcriber process: it starts the registered
// components in order, runs the configure callbacks that wire the domain
// services, then blocks until a shutdown signal and stops everything in
// reverse.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(redisComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    srv := server.New(a.Cfg.Server, a.Logger)
//	    registerRoutes(srv.GinEngine())
//	    return a.StartComponent(ctx, server.NewComponent(srv))
//	})
//	err = app.Run(ctx)
package bootstrap
