package service

import (
	"context"
	"fmt"

	_ "github.com/kbukum/transcriber/transcription/whisper"

	"github.com/kbukum/transcriber/bootstrap"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/transcript"
	"github.com/kbukum/transcriber/transcription"
	"github.com/kbukum/transcriber/worker"
)

// ConfigureWorker wires the worker process: the executor consumes the
// queue with queue.concurrency slots.
func ConfigureWorker(app *bootstrap.App[*Config]) error {
	infra, err := Register(app)
	if err != nil {
		return err
	}
	provider, err := transcription.New(app.Cfg.Transcription)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := app.RegisterComponent(transcription.NewComponent(provider, app.Cfg.Transcription)); err != nil {
		return err
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		cfg := a.Cfg
		exec := worker.New(infra.Tasks(), infra.Cache, transcript.NewPipeline(provider), a.Logger,
			worker.WithSink(infra.Objects(), cfg.Storage.KeyPrefix),
			worker.WithMetrics(infra.Metrics),
		)
		return a.StartComponent(ctx, queue.NewServer(queue.RedisOpt(cfg.Redis), cfg.Queue, exec, cfg.InstanceID, a.Logger))
	})
	return nil
}
