package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

// Scheduler runs Reaper.Sweep on a cron schedule in UTC. A sweep that is
// still running when the next one is due makes that one skip.
type Scheduler struct {
	reaper *Reaper
	spec   string
	log    *logger.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	last    SweepReport
	lastErr error
	lastRun time.Time
}

// NewScheduler creates a scheduler for spec ("@daily", "0 3 * * *", "@every 6h").
func NewScheduler(r *Reaper, spec string, log *logger.Logger) *Scheduler {
	return &Scheduler{reaper: r, spec: spec, log: log.WithComponent("reaper-scheduler")}
}

var _ component.Component = (*Scheduler)(nil)

// Name returns the component name.
func (s *Scheduler) Name() string { return "reaper" }

// Start registers the sweep and starts the cron loop.
func (s *Scheduler) Start(_ context.Context) error {
	cl := cronLogger{s.log}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("reaper schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("reaper scheduled", logger.Fields("schedule", s.spec, "retention", s.reaper.Retention().String()))
	return nil
}

// Stop cancels a running sweep and waits for it to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a sweep now and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (SweepReport, error) {
	rep, err := s.reaper.Sweep(ctx)
	s.mu.Lock()
	s.last, s.lastErr, s.lastRun = rep, err, time.Now()
	s.mu.Unlock()
	return rep, err
}

// Last returns the most recent sweep outcome and when it ran.
func (s *Scheduler) Last() (SweepReport, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastRun, s.lastErr
}

// Health is degraded when the last sweep could not list tasks.
func (s *Scheduler) Health(_ context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if s.lastErr != nil {
		h.Status = component.StatusDegraded
		h.Message = s.lastErr.Error()
	}
	return h
}

// Describe returns summary info for the startup log.
func (s *Scheduler) Describe() component.Description {
	return component.Description{
		Name:    "Cache reaper",
		Type:    "scheduler",
		Details: fmt.Sprintf("schedule=%s retention=%s", s.spec, s.reaper.Retention()),
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, logger.Fields(kv...))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	fields := logger.Fields(kv...)
	fields[logger.FieldError] = err.Error()
	l.log.Error(msg, fields)
}
