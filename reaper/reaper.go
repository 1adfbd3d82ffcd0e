package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/store"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Checked int `json:"checked"`
	Expired int `json:"expired"`
	// Cleaned counts expired tasks whose files and record are gone.
	Cleaned int `json:"cleaned"`
	// Retained counts expired tasks kept because a removal failed or the
	// record changed during the sweep.
	Retained int `json:"retained"`
	// Skipped counts tasks with no usable timestamp or an unreadable record.
	Skipped int `json:"skipped"`
}

// Reaper performs retention sweeps.
type Reaper struct {
	tasks     *store.Tasks
	cache     *cache.Cache
	retention time.Duration
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

// WithMetrics records cleanup counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Reaper) { r.metrics = m }
}

// New creates a Reaper with the given retention window.
func New(tasks *store.Tasks, c *cache.Cache, retention time.Duration, log *logger.Logger, opts ...Option) *Reaper {
	r := &Reaper{
		tasks:     tasks,
		cache:     c,
		retention: retention,
		log:       log.WithComponent("reaper"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retention returns the configured window.
func (r *Reaper) Retention() time.Duration { return r.retention }

// Sweep visits every task once. It fails only when the task list cannot be read.
func (r *Reaper) Sweep(ctx context.Context) (rep SweepReport, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSweep)
	defer func() { observability.EndSpan(span, err) }()

	ids, err := r.tasks.IDs(ctx)
	if err != nil {
		r.log.Error("could not list tasks", logger.Fields(logger.FieldError, err.Error()))
		return rep, err
	}
	r.log.Info("sweep started", logger.Fields("tasks", len(ids), "retention", r.retention.String()))

	failedFiles := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Checked++
		failedFiles += r.visit(ctx, id, &rep)
	}

	r.metrics.RecordCleanup(ctx, "reaper", rep.Cleaned, failedFiles)
	r.log.Info("sweep finished", logger.Fields(
		"checked", rep.Checked,
		"expired", rep.Expired,
		"cleaned", rep.Cleaned,
		"retained", rep.Retained,
		"skipped", rep.Skipped,
	))
	return rep, nil
}

// visit handles one task and returns the number of failed file removals.
func (r *Reaper) visit(ctx context.Context, id string, rep *SweepReport) int {
	log := r.log.WithTask(id)

	rec, err := r.tasks.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Removed since listing.
		return 0
	case err != nil:
		rep.Skipped++
		log.Warn("could not read task", logger.Fields(logger.FieldError, err.Error()))
		return 0
	}

	ts := rec.ActivityTime()
	if ts == nil {
		rep.Skipped++
		log.Warn("no usable timestamp, skipping", logger.Fields(logger.FieldStatus, string(rec.Status)))
		return 0
	}
	age := r.now().Sub(*ts)
	if age <= r.retention {
		return 0
	}
	rep.Expired++

	res := Cleanup(ctx, r.tasks, r.cache, rec)
	switch {
	case !res.Files.OK():
		rep.Retained++
		log.Warn("file removal failed, keeping record", logger.Fields(
			"failed", res.Files.Failed,
			logger.FieldError, res.Files.Err().Error(),
		))
	case res.Conflict():
		rep.Retained++
		log.Info("task changed during sweep, will re-check next run")
	case res.RecordErr != nil:
		rep.Retained++
		log.Warn("could not delete record", logger.Fields(logger.FieldError, res.RecordErr.Error()))
	default:
		rep.Cleaned++
		log.Info("expired task removed", logger.Fields(
			logger.FieldStatus, string(rec.Status),
			"age", age.Round(time.Second).String(),
			"deleted_files", len(res.Files.Deleted),
			"missing_files", len(res.Files.Missing),
		))
	}
	return len(res.Files.Failed)
}
