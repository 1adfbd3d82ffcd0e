package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App is one transcriber process: the API server, the worker or a reaper
// run. C is the process config type.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	onStart         []Hook
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStop          []Hook
}

// NewApp applies defaults to cfg, validates it and sets up logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()
	o := options{grace: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.grace <= 0 {
		o.grace = defaultGracefulTimeout
	}

	log := o.log
	if log == nil {
		logger.Init(svc.Logging)
		log = logger.GetGlobalLogger()
	}

	return &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(log),
		Logger:          log,
		gracefulTimeout: o.grace,
	}, nil
}

// RegisterComponent adds c to the set started by Run and RunTask.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// StartComponent starts c right away and keeps it for shutdown. Configure
// callbacks use it for components built on running infrastructure.
func (a *App[C]) StartComponent(ctx context.Context, c component.Component) error {
	return a.Components.Start(ctx, c)
}

// OnConfigure adds a callback that wires domain services once the
// infrastructure components are running.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck names every component that does not report healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var errs []error
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		if h.Message != "" {
			errs = append(errs, fmt.Errorf("%s is %s: %s", h.Name, h.Status, h.Message))
		} else {
			errs = append(errs, fmt.Errorf("%s is %s", h.Name, h.Status))
		}
	}
	return errors.Join(errs...)
}

// Run brings the process up and blocks until SIGINT, SIGTERM or ctx ends,
// then shuts down within the graceful timeout.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	<-ctx.Done()
	a.Logger.Info("Shutdown requested", logger.Fields("cause", context.Cause(ctx).Error()))
	return a.shutdown()
}

// RunTask brings the process up, runs task to completion and shuts down.
// A signal cancels the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.startup(ctx); err != nil {
		return err
	}
	taskErr := task(ctx)
	stopErr := a.shutdown()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runStartHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.WithError(err).Warn("Ready check reported issues")
	}
	a.logSummary(ctx, time.Since(began))
	return nil
}

// shutdown runs stop hooks and then stops components. It uses a fresh
// context since the run context is usually already canceled by now.
func (a *App[C]) shutdown() error {
	a.Logger.Info("Shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hookErr := runStopHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.WithError(hookErr).Error("Stop hooks failed")
	}
	stopErr := a.Components.StopAll(ctx)
	if stopErr != nil {
		a.Logger.WithError(stopErr).Error("Shutdown completed with errors")
	}
	a.Logger.Info("Application shutdown complete")
	return errors.Join(hookErr, stopErr)
}
