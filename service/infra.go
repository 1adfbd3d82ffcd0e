package service

import (
	"context"
	"fmt"

	_ "github.com/kbukum/transcriber/storage/local"
	_ "github.com/kbukum/transcriber/storage/s3"

	"github.com/kbukum/transcriber/bootstrap"
	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/database"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/redis"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/store"
)

// meterName scopes every instrument of the service.
const meterName = "github.com/kbukum/transcriber"

// Infra is the infrastructure every process shares. Store and Objects are
// usable from configure hooks on, once the components have started.
type Infra struct {
	Cache   *cache.Cache
	Metrics *observability.Metrics

	cfg      *Config
	redis    *redis.Component
	database *database.Component
	storage  *storage.Component
	tasks    *store.Tasks
}

// Register adds the metadata store backend and object storage to app, opens
// the cache and installs telemetry for the app's lifetime.
func Register(app *bootstrap.App[*Config]) (*Infra, error) {
	cfg := app.Cfg
	infra := &Infra{cfg: cfg}

	switch cfg.Store.Backend {
	case store.BackendSQL:
		infra.database = database.NewComponent(cfg.Database, app.Logger).WithAutoMigrate(&store.Document{})
		if err := app.RegisterComponent(infra.database); err != nil {
			return nil, err
		}
	default:
		infra.redis = redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(infra.redis); err != nil {
			return nil, err
		}
	}

	infra.storage = storage.NewComponent(cfg.Storage, app.Logger)
	if err := app.RegisterComponent(infra.storage); err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache.Root)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	infra.Cache = c

	metrics, err := observability.NewMetrics(observability.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.Metrics = metrics

	var shutdown observability.ShutdownFunc
	app.OnStart(func(ctx context.Context) error {
		fn, err := observability.Setup(ctx, cfg.Observability, app.Name, app.Version, cfg.Environment)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		shutdown = fn
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(ctx)
	})

	app.Logger.Info("infrastructure registered", logger.Fields(
		"store", cfg.Store.Backend,
		"cache_root", c.Root(),
		"object_storage", cfg.Storage.IsConfigured(),
	))
	return infra, nil
}

// Tasks returns the metadata store repository on the started backend.
func (i *Infra) Tasks() *store.Tasks {
	if i.tasks != nil {
		return i.tasks
	}
	if i.database != nil {
		i.tasks = store.NewTasks(store.NewSQLStore(i.database.DB()))
	} else {
		i.tasks = store.NewTasks(store.NewRedisStore(i.redis.Client()))
	}
	return i.tasks
}

// Objects returns object storage, or nil when it is not configured.
func (i *Infra) Objects() storage.Storage {
	return i.storage.Storage()
}
