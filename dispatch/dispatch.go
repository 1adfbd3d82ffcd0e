package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/transcriber/cache"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/util"
)

// Enqueuer submits work units. *queue.Client implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, p queue.Payload) (string, error)
}

// Request describes a task to create.
type Request struct {
	Type     task.Type
	ClientID string
	// ResultsPath is the optional object-storage suffix for artifacts.
	ResultsPath string

	OriginalFilename    string
	OriginalURL         string
	OriginalS3InputPath string
}

// Source is audio already placed in the cache for a task.
type Source struct {
	// Path is relative to the cache root.
	Path string
	// Name is the original file name used to name artifacts.
	Name string
}

// AcquireFunc places the source audio for taskID in the cache. Errors it
// returns reach the caller unchanged, so they should be AppErrors.
type AcquireFunc func(ctx context.Context, taskID string) (Source, error)

// Dispatcher creates tasks.
type Dispatcher struct {
	tasks          *store.Tasks
	queue          Enqueuer
	cache          *cache.Cache
	sinkConfigured bool
	metrics        *observability.Metrics
	log            *logger.Logger

	newID func() string
	now   func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records dispatch outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDGenerator overrides the uuid task id generator.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// New creates a Dispatcher. sinkConfigured reports whether object storage
// is configured; results sinks are refused without it.
func New(tasks *store.Tasks, q Enqueuer, c *cache.Cache, sinkConfigured bool, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tasks:          tasks,
		queue:          q,
		cache:          c,
		sinkConfigured: sinkConfigured,
		log:            log.WithComponent("dispatcher"),
		newID:          func() string { return uuid.New().String() },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ValidateSink checks an optional results path. An empty path is accepted.
// A sink without object storage configured is NotImplemented, not invalid.
func (d *Dispatcher) ValidateSink(resultsPath string) error {
	if resultsPath == "" {
		return nil
	}
	if !d.sinkConfigured {
		return apperrors.NotImplemented("Object storage for results")
	}
	if err := storage.ValidateResultsPath(resultsPath); err != nil {
		return apperrors.InvalidFormat("s3_results_path",
			"a relative path without leading or trailing '/' and without '..'").WithCause(err)
	}
	return nil
}

// CreateAndDispatch creates a task for req and enqueues it once. It returns
// the new task id. On enqueue failure the task is recorded FAILED and the
// returned error carries the task id in its details.
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, req Request, acquire AcquireFunc) (taskID string, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanDispatch,
		observability.AttrTaskType.String(string(req.Type)), observability.AttrClientID.String(req.ClientID))
	defer func() {
		outcome := "dispatched"
		if err != nil {
			outcome = "failed"
		}
		d.metrics.RecordDispatch(ctx, string(req.Type), outcome)
		observability.EndSpan(span, err)
	}()

	if req.ClientID == "" {
		return "", apperrors.MissingField("Client-Id")
	}
	if err := d.ValidateSink(req.ResultsPath); err != nil {
		return "", err
	}

	id := d.newID()
	observability.Annotate(ctx, observability.AttrTaskID.String(id))
	log := d.log.WithTask(id).WithFields(logger.Fields(logger.FieldClientID, req.ClientID))

	src, err := acquire(ctx, id)
	if err != nil {
		log.Warn("source acquisition failed", logger.Fields(logger.FieldError, err.Error()))
		return "", err
	}

	rec := d.initialRecord(id, req, src)
	if err := d.tasks.Create(ctx, rec); err != nil {
		log.Error("initial record write failed", logger.Fields(logger.FieldError, err.Error()))
		if rmErr := d.cache.Remove(src.Path); rmErr != nil && !errors.Is(rmErr, cache.ErrUnsafePath) {
			log.Warn("could not remove orphaned source", logger.Fields(logger.FieldPath, src.Path, logger.FieldError, rmErr.Error()))
		}
		return "", store.AppError(err, id)
	}

	payload := queue.Payload{
		TaskID:           id,
		AudioPath:        d.cache.Abs(src.Path),
		ClientID:         req.ClientID,
		S3ResultsPath:    req.ResultsPath,
		OriginalFilename: src.Name,
	}
	correlationID, enqErr := d.queue.Enqueue(ctx, payload)
	if enqErr != nil {
		return id, d.failDispatch(ctx, log, id, enqErr)
	}

	_, err = d.tasks.Update(ctx, id, func(r *task.Record) error {
		now := d.now()
		if task.CanTransition(r.Status, task.StatusPendingDispatch) {
			if err := r.Transition(task.StatusPendingDispatch, now); err != nil {
				return err
			}
		} else {
			r.Touch(now)
		}
		r.DispatchCorrelationID = correlationID
		r.DispatchTime = util.Ptr(now.UTC())
		return nil
	})
	if err != nil {
		// The work unit is queued; the executor picks it up regardless.
		log.Warn("could not record dispatch", logger.Fields("correlation_id", correlationID, logger.FieldError, err.Error()))
	}

	log.Info("task dispatched", logger.Fields(
		"task_type", string(req.Type),
		"correlation_id", correlationID,
		"sink", req.ResultsPath != "",
	))
	return id, nil
}

func (d *Dispatcher) initialRecord(id string, req Request, src Source) *task.Record {
	now := d.now().UTC()
	rec := &task.Record{
		TaskID:              id,
		ClientID:            req.ClientID,
		Status:              req.Type.InitialStatus(),
		TaskType:            req.Type,
		OriginalFilename:    req.OriginalFilename,
		OriginalURL:         req.OriginalURL,
		OriginalS3InputPath: req.OriginalS3InputPath,
		SavedFilename:       src.Path,
		LastUpdatedTime:     util.Ptr(now),
	}
	if req.ResultsPath != "" {
		rec.S3ResultsPath = util.Ptr(req.ResultsPath)
	}
	if req.Type == task.TypeFileUpload {
		rec.UploadTime = util.Ptr(now)
	} else {
		rec.DownloadTime = util.Ptr(now)
	}
	return rec
}

func (d *Dispatcher) failDispatch(ctx context.Context, log *logger.Logger, id string, cause error) error {
	log.Error("enqueue failed", logger.Fields(logger.FieldError, cause.Error()))
	_, err := d.tasks.Update(ctx, id, func(r *task.Record) error {
		return r.Fail("failed to dispatch task to the work queue: "+cause.Error(), d.now())
	})
	if err != nil {
		log.Error("could not record dispatch failure", logger.Fields(logger.FieldError, err.Error()))
	}
	return apperrors.ServiceUnavailable("task queue").WithCause(cause).WithDetail("task_id", id)
}
