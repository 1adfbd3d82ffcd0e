package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

// ErrTransient marks a handler failure that left no trace on the task, so
// the broker may deliver it again (for example the metadata store was down
// at pickup).
var ErrTransient = errors.New("queue: transient failure")

// Delivery describes one delivery of a work unit.
type Delivery struct {
	// QueueTaskID is the broker's id for the work unit.
	QueueTaskID string
	// Retried counts earlier deliveries of the same unit.
	Retried int
	// Worker identifies the process handling the delivery.
	Worker string
}

// Handler processes work units.
type Handler interface {
	Handle(ctx context.Context, p Payload, d Delivery) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, p Payload, d Delivery) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, p Payload, d Delivery) error { return f(ctx, p, d) }

// Server runs Handler over the queue with Concurrency worker slots.
type Server struct {
	srv     *asynq.Server
	handler Handler
	worker  string
	cfg     Config
	log     *logger.Logger
}

// NewServer creates a worker server. worker names this process in records.
func NewServer(opt asynq.RedisConnOpt, cfg Config, handler Handler, worker string, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	s := &Server{
		handler: handler,
		worker:  worker,
		cfg:     cfg,
		log:     log.WithComponent("queue-server"),
	}
	s.srv = asynq.NewServer(opt, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{cfg.Queue: 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          newAsynqLogger(s.log),
		LogLevel:        logLevel(cfg.LogLevel),
		ErrorHandler:    asynq.ErrorHandlerFunc(s.onError),
	})
	return s
}

// ProcessTask implements asynq.Handler.
func (s *Server) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := parsePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	d := Delivery{Worker: s.worker}
	d.QueueTaskID, _ = asynq.GetTaskID(ctx)
	d.Retried, _ = asynq.GetRetryCount(ctx)

	err = s.handler.Handle(ctx, p, d)
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

func (s *Server) onError(ctx context.Context, t *asynq.Task, err error) {
	id, _ := asynq.GetTaskID(ctx)
	retried, _ := asynq.GetRetryCount(ctx)
	s.log.Warn("work unit failed", logger.Fields(
		"queue_task_id", id,
		"type", t.Type(),
		"retried", retried,
		"final", !errors.Is(err, ErrTransient),
		logger.FieldError, err.Error(),
	))
}

var _ component.Component = (*Server)(nil)

// Name returns the component name.
func (s *Server) Name() string { return "queue-server" }

// Start begins pulling work in background goroutines.
func (s *Server) Start(_ context.Context) error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeTranscribe, s)
	if err := s.srv.Start(mux); err != nil {
		return fmt.Errorf("queue server start: %w", err)
	}
	s.log.Info("queue server started", logger.Fields("queue", s.cfg.Queue, "concurrency", s.cfg.Concurrency, logger.FieldWorker, s.worker))
	return nil
}

// Stop waits up to ShutdownTimeout for in-flight work. Unfinished work is
// returned to the queue by the broker.
func (s *Server) Stop(_ context.Context) error {
	s.srv.Shutdown()
	return nil
}

// Health reports healthy while the server runs; broker reachability is
// reported by the redis component.
func (s *Server) Health(_ context.Context) component.Health {
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup log.
func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "Queue worker",
		Type:    "asynq",
		Details: fmt.Sprintf("queue=%s concurrency=%d max_retry=%d", s.cfg.Queue, s.cfg.Concurrency, s.cfg.Retries()),
	}
}
