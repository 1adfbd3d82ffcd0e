package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/kbukum/transcriber/cache"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/transcript"
	"github.com/kbukum/transcriber/util"
)

// recordWriteTimeout bounds the record writes that finish a delivery. They
// run detached from the delivery context so a timed-out or aborted delivery
// still leaves a terminal record behind.
const recordWriteTimeout = 15 * time.Second

const (
	contentTypeJSON     = "application/json; charset=utf-8"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
)

var (
	// ErrSourceMissing is the fatal error for a work unit whose audio is gone.
	ErrSourceMissing = errors.New("worker: input audio file not found")

	errAlreadyFinished = errors.New("worker: task already finished")
	errRecordGone      = errors.New("worker: task record deleted during processing")
)

// Transcriber turns audio into a transcript document. *transcript.Pipeline
// implements it.
type Transcriber interface {
	Run(ctx context.Context, audio io.Reader, source string) (*transcript.Document, error)
}

// Executor implements queue.Handler.
type Executor struct {
	tasks     *store.Tasks
	cache     *cache.Cache
	pipeline  Transcriber
	sink      storage.Storage
	keyPrefix string
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time
}

var _ queue.Handler = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithSink enables artifact upload. A nil sink makes every requested upload
// fail, which finalizes such tasks as COMPLETED_WITH_S3_UPLOAD_FAILURES.
func WithSink(s storage.Storage, keyPrefix string) Option {
	return func(e *Executor) {
		e.sink = s
		e.keyPrefix = keyPrefix
	}
}

// WithMetrics records task outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor.
func New(tasks *store.Tasks, c *cache.Cache, pipeline Transcriber, log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		tasks:     tasks,
		cache:     c,
		pipeline:  pipeline,
		keyPrefix: storage.DefaultKeyPrefix,
		log:       log.WithComponent("executor"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one delivery. Errors wrapping queue.ErrTransient left the
// task untouched or resumable and may be redelivered; every other error has
// been recorded as FAILED on the task.
func (e *Executor) Handle(ctx context.Context, p queue.Payload, d queue.Delivery) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanExecute,
		observability.AttrTaskID.String(p.TaskID), observability.AttrClientID.String(p.ClientID))
	defer func() { observability.EndSpan(span, err) }()

	log := e.log.WithTask(p.TaskID).WithFields(logger.Fields(
		logger.FieldClientID, p.ClientID,
		"queue_task_id", d.QueueTaskID,
		"retried", d.Retried,
	))
	started := e.now()

	rec, err := e.pickup(ctx, p, d)
	switch {
	case errors.Is(err, errAlreadyFinished):
		log.Info("duplicate delivery for finished task, skipping")
		return nil
	case errors.Is(err, store.ErrNotFound):
		log.Warn("task record not found, dropping work unit")
		return nil
	case errors.Is(err, store.ErrCorrupt):
		log.Error("task record unreadable", logger.Fields(logger.FieldError, err.Error()))
		return err
	case errors.Is(err, task.ErrIllegalTransition):
		log.Error("task record cannot be picked up", logger.Fields(logger.FieldError, err.Error()))
		return err
	case err != nil:
		return e.storeError(log, "pickup", err)
	}
	log.Info("processing started", logger.Fields(logger.FieldWorker, d.Worker, "audio_path", p.AudioPath))

	status, err := e.run(ctx, log, rec, p)
	switch {
	case err == nil:
		observability.Annotate(ctx, observability.AttrTaskStatus.String(string(status)))
		e.metrics.RecordTaskEnd(ctx, string(status), e.now().Sub(started))
		log.Info("processing finished", logger.Fields(logger.FieldStatus, string(status)))
		return nil
	case errors.Is(err, errAlreadyFinished):
		log.Info("task finalized by another delivery")
		return nil
	case errors.Is(err, errRecordGone):
		log.Warn("task record deleted while processing, artifacts discarded")
		return nil
	case isStoreError(err):
		return e.storeError(log, "record update", err)
	}

	observability.Annotate(ctx, observability.AttrTaskStatus.String(string(task.StatusFailed)))
	e.metrics.RecordTaskEnd(ctx, string(task.StatusFailed), e.now().Sub(started))
	log.WithError(err).Error("processing failed")
	if ferr := e.fail(ctx, p.TaskID, err); ferr != nil {
		log.WithError(ferr).Error("could not record failure")
	}
	return err
}

func (e *Executor) pickup(ctx context.Context, p queue.Payload, d queue.Delivery) (*task.Record, error) {
	return e.tasks.Update(ctx, p.TaskID, func(r *task.Record) error {
		if r.Status.IsTerminal() {
			return errAlreadyFinished
		}
		now := e.now()
		if err := r.Transition(task.StatusProcessing, now); err != nil {
			return err
		}
		r.ProcessingStartTime = util.Ptr(now.UTC())
		r.WorkerNode = d.Worker
		r.QueueTaskID = d.QueueTaskID
		return nil
	})
}

// run performs the pipeline and finalizes the record. Errors that are not
// store errors or sentinels above are processing failures.
func (e *Executor) run(ctx context.Context, log *logger.Logger, rec *task.Record, p queue.Payload) (task.Status, error) {
	src, err := e.cache.Rel(p.AudioPath)
	if err != nil {
		return "", apperrors.ProcessingFailed(stageSource, fmt.Errorf("%w: %s", ErrSourceMissing, p.AudioPath))
	}
	f, err := e.cache.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return "", apperrors.ProcessingFailed(stageSource, fmt.Errorf("%w: %s", ErrSourceMissing, p.AudioPath))
	}
	if err != nil {
		return "", apperrors.ProcessingFailed(stageSource, err)
	}
	name := util.Coalesce(p.OriginalFilename, rec.OriginalFilename, path.Base(src))
	doc, err := e.pipeline.Run(ctx, f, name)
	_ = f.Close()
	if err != nil {
		return "", apperrors.ProcessingFailed(stageTranscription, err)
	}

	jsonBody, err := doc.JSON()
	if err != nil {
		return "", apperrors.ProcessingFailed(stageArtifacts, err)
	}
	jsonPath, mdPath := task.ArtifactPaths(rec.TaskID, p.OriginalFilename)
	written := []string{jsonPath, mdPath}
	if err := e.cache.WriteFile(jsonPath, jsonBody); err != nil {
		return "", apperrors.ProcessingFailed(stageArtifacts, err)
	}
	if err := e.cache.WriteFile(mdPath, doc.Markdown()); err != nil {
		return "", apperrors.ProcessingFailed(stageArtifacts, err)
	}

	wctx, cancel := e.recordContext(ctx)
	_, err = e.tasks.Update(wctx, rec.TaskID, func(r *task.Record) error {
		if r.Status.IsTerminal() {
			return errAlreadyFinished
		}
		r.TranscribedJSONFile = util.Ptr(jsonPath)
		r.TranscribedMDFile = util.Ptr(mdPath)
		r.Touch(e.now())
		return nil
	})
	cancel()
	if err != nil {
		return "", e.afterWrite(log, rec, written, err)
	}

	var jsonURL, mdURL *string
	if p.S3ResultsPath != "" {
		jsonURL = e.upload(ctx, log, p, jsonPath, ".json", contentTypeJSON)
		mdURL = e.upload(ctx, log, p, mdPath, ".md", contentTypeMarkdown)
	}

	final := task.StatusCompleted
	if p.S3ResultsPath != "" && (jsonURL == nil || mdURL == nil) {
		final = task.StatusCompletedS3Failures
	}
	wctx, cancel = e.recordContext(ctx)
	defer cancel()
	_, err = e.tasks.Update(wctx, rec.TaskID, func(r *task.Record) error {
		if r.Status.IsTerminal() {
			return errAlreadyFinished
		}
		now := e.now()
		if err := r.Transition(final, now); err != nil {
			return err
		}
		r.ProcessingEndTime = util.Ptr(now.UTC())
		r.S3JSONURL = jsonURL
		r.S3MDURL = mdURL
		r.ErrorMessage = nil
		return nil
	})
	if err != nil {
		return "", e.afterWrite(log, rec, written, err)
	}
	return final, nil
}

// afterWrite classifies a failed record update made after artifacts exist.
// If the record is gone the artifacts are orphans and are removed.
func (e *Executor) afterWrite(log *logger.Logger, rec *task.Record, written []string, err error) error {
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	rep := e.cache.Purge(written, rec.ArtifactDir())
	if !rep.OK() {
		log.Warn("could not remove orphaned artifacts", logger.Fields(logger.FieldError, rep.Err().Error()))
	}
	return errRecordGone
}

// upload sends one artifact to the sink and returns its location, or nil
// when the upload failed.
func (e *Executor) upload(ctx context.Context, log *logger.Logger, p queue.Payload, rel, ext, contentType string) *string {
	format := ext[1:]
	fail := func(err error) *string {
		e.metrics.RecordUploadFailure(ctx, format)
		log.Warn("artifact upload failed", logger.Fields("format", format, logger.FieldError, err.Error()))
		return nil
	}
	if e.sink == nil {
		return fail(errors.New("object storage is not configured"))
	}

	data, err := e.readArtifact(rel)
	if err != nil {
		return fail(err)
	}
	key := storage.ResultKey(e.keyPrefix, p.ClientID, p.S3ResultsPath, ext)
	if err := e.sink.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return fail(err)
	}
	loc := e.sink.Location(key)
	log.Info("artifact uploaded", logger.Fields("format", format, "location", loc))
	return &loc
}

func (e *Executor) readArtifact(rel string) ([]byte, error) {
	f, err := e.cache.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// recordContext keeps ctx's values but not its deadline or cancellation.
func (e *Executor) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordWriteTimeout)
}

func (e *Executor) fail(ctx context.Context, id string, cause error) error {
	ctx, cancel := e.recordContext(ctx)
	defer cancel()
	msg := failureMessage(cause)
	_, err := e.tasks.Update(ctx, id, func(r *task.Record) error {
		if r.Status.IsTerminal() {
			return store.ErrNoChange
		}
		return r.Fail(msg, e.now())
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (e *Executor) storeError(log *logger.Logger, stage string, err error) error {
	log.Warn("metadata store error, work unit will be redelivered", logger.Fields("stage", stage, logger.FieldError, err.Error()))
	return fmt.Errorf("%w: %s: %w", queue.ErrTransient, stage, err)
}

// Pipeline stages named in PROCESSING_FAILED errors.
const (
	stageSource        = "source"
	stageTranscription = "transcription"
	stageArtifacts     = "artifacts"
)

// failureMessage is the error_message stored on a failed record.
func failureMessage(err error) string {
	if ae, ok := apperrors.AsAppError(err); ok && ae.Code == apperrors.ErrCodeProcessingFailed && ae.Cause != nil {
		return fmt.Sprintf("%s: %v", ae.Details["stage"], ae.Cause)
	}
	return err.Error()
}

func isStoreError(err error) bool {
	return errors.Is(err, store.ErrUnavailable) || errors.Is(err, store.ErrVersionConflict)
}
