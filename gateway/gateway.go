package gateway

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"time"

	"github.com/kbukum/transcriber/cache"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/reaper"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/util"
)

// releaseAttempts bounds retries when a record changes during release.
const releaseAttempts = 3

// Inspector reads broker-side state. *queue.Inspector implements it.
type Inspector interface {
	Task(id string) (*queue.TaskState, error)
	Stats() (*queue.QueueStats, error)
}

// Gateway serves task status, artifacts and release.
type Gateway struct {
	tasks     *store.Tasks
	cache     *cache.Cache
	inspector Inspector
	cfg       Config
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithInspector adds broker-side details to queue stats and debug views.
func WithInspector(i Inspector) Option {
	return func(g *Gateway) { g.inspector = i }
}

// WithMetrics records release outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a Gateway.
func New(tasks *store.Tasks, c *cache.Cache, cfg Config, log *logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		tasks: tasks,
		cache: c,
		cfg:   cfg,
		log:   log.WithComponent("gateway"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// authorize loads id and checks owner. An empty owner is privileged.
func (g *Gateway) authorize(ctx context.Context, id, owner string) (*task.Record, error) {
	rec, err := g.tasks.Get(ctx, id)
	if err != nil {
		return nil, store.AppError(err, id)
	}
	if owner != "" && owner != rec.ClientID {
		g.log.Warn("owner mismatch", logger.Fields(logger.FieldTaskID, id, logger.FieldClientID, owner))
		if g.cfg.HideForeignTasks {
			return nil, apperrors.NotFound("task", id)
		}
		return nil, apperrors.Forbidden("Access denied. Client ID does not match task owner.")
	}
	return rec, nil
}

// Status returns the current record.
func (g *Gateway) Status(ctx context.Context, id, owner string) (*task.Record, error) {
	return g.authorize(ctx, id, owner)
}

// Artifact is an open artifact file. The caller must close Body.
type Artifact struct {
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
	Body        io.ReadCloser
}

// Artifact opens the requested rendering of a completed task and stamps
// last_download_time. Tasks with a results sink are refused whatever
// their status.
func (g *Gateway) Artifact(ctx context.Context, id, owner string, format task.Format) (*Artifact, error) {
	rec, err := g.authorize(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if rec.HasResultsSink() {
		return nil, apperrors.InvalidState("Results were delivered to object storage; fetch them from storage directly.").
			WithDetail("s3_results_path", *rec.S3ResultsPath)
	}
	if !rec.Status.IsCompleted() {
		return nil, apperrors.InvalidState("Task is not completed.").WithDetail("status", string(rec.Status))
	}
	rel := util.Deref(format.Path(rec))
	if rel == "" {
		return nil, apperrors.NotFound(string(format)+" artifact", id)
	}

	f, err := g.cache.Open(rel)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NotFound(string(format)+" artifact", id)
	}
	if err != nil {
		return nil, apperrors.Internal(err).WithDetail("task_id", id)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, apperrors.Internal(err).WithDetail("task_id", id)
	}

	g.stampDownload(ctx, id)
	return &Artifact{
		Name:        path.Base(rel),
		ContentType: format.ContentType(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Body:        f,
	}, nil
}

// stampDownload records last_download_time. Failure is logged; the file is
// still served.
func (g *Gateway) stampDownload(ctx context.Context, id string) {
	_, err := g.tasks.Update(ctx, id, func(r *task.Record) error {
		now := g.now()
		r.LastDownloadTime = util.Ptr(now.UTC())
		r.Touch(now)
		return nil
	})
	if err != nil {
		g.log.Warn("could not stamp last_download_time", logger.Fields(logger.FieldTaskID, id, logger.FieldError, err.Error()))
	}
}

// ReleaseReport is the outcome of a manual release.
type ReleaseReport struct {
	Message              string   `json:"message"`
	DeletedCacheFiles    int      `json:"deleted_cache_files"`
	FilesNotFoundInCache int      `json:"files_not_found_in_cache"`
	RecordDeleted        bool     `json:"record_deleted"`
	ErrorsDeletingFiles  []string `json:"errors_deleting_files"`
}

// Release deletes the task's local files and, iff none failed, its record.
func (g *Gateway) Release(ctx context.Context, id, owner string) (report *ReleaseReport, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRelease,
		observability.AttrTaskID.String(id), observability.AttrClientID.String(owner))
	defer func() { observability.EndSpan(span, err) }()

	report = &ReleaseReport{Message: "Task resources release processed."}
	deleted := map[string]bool{}
	for attempt := 0; attempt < releaseAttempts; attempt++ {
		rec, err := g.authorize(ctx, id, owner)
		if err != nil {
			// Removed by a concurrent release or sweep after our first pass.
			if appErr, ok := apperrors.AsAppError(err); ok && attempt > 0 && appErr.Code == apperrors.ErrCodeNotFound {
				return report, nil
			}
			return nil, err
		}

		res := reaper.Cleanup(ctx, g.tasks, g.cache, rec)
		for _, f := range res.Files.Deleted {
			deleted[f] = true
		}
		report.DeletedCacheFiles = len(deleted)
		report.FilesNotFoundInCache = 0
		for _, f := range res.Files.Missing {
			if !deleted[f] {
				report.FilesNotFoundInCache++
			}
		}
		report.ErrorsDeletingFiles = res.Files.Failed
		report.RecordDeleted = res.RecordDeleted

		switch {
		case res.Conflict():
			continue
		case !res.Files.OK():
			g.log.Warn("release left files behind, record kept", logger.Fields(
				logger.FieldTaskID, id,
				"failed", res.Files.Failed,
				logger.FieldError, res.Files.Err().Error(),
			))
		case res.RecordErr != nil:
			return nil, store.AppError(res.RecordErr, id)
		}
		g.metrics.RecordCleanup(ctx, "release", boolCount(res.RecordDeleted), len(res.Files.Failed))
		g.log.Info("task released", logger.Fields(
			logger.FieldTaskID, id,
			"deleted", report.DeletedCacheFiles,
			"missing", report.FilesNotFoundInCache,
			"record_deleted", report.RecordDeleted,
		))
		return report, nil
	}
	return nil, apperrors.Conflict("The task kept changing during release. Please retry.").WithDetail("task_id", id)
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// QueueStats counts tracked tasks.
type QueueStats struct {
	ActiveTasksInQueue int               `json:"active_tasks_in_queue"`
	TotalTrackedTasks  int               `json:"total_tracked_tasks"`
	Broker             *queue.QueueStats `json:"broker,omitempty"`
}

// QueueStats counts tasks whose status is active (pending, processing or
// the reserved RETRYING) and all tracked tasks. Unreadable records count
// towards the total only.
func (g *Gateway) QueueStats(ctx context.Context) (*QueueStats, error) {
	ids, err := g.tasks.IDs(ctx)
	if err != nil {
		return nil, store.AppError(err, "")
	}
	stats := &QueueStats{TotalTrackedTasks: len(ids)}
	for _, id := range ids {
		rec, err := g.tasks.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				g.log.Debug("skipping unreadable task", logger.Fields(logger.FieldTaskID, id, logger.FieldError, err.Error()))
			}
			continue
		}
		if rec.Status.IsActive() {
			stats.ActiveTasksInQueue++
		}
	}
	if g.inspector != nil {
		broker, err := g.inspector.Stats()
		if err != nil {
			g.log.Warn("broker stats unavailable", logger.Fields(logger.FieldError, err.Error()))
		} else {
			stats.Broker = broker
		}
	}
	return stats, nil
}

// FileInfo describes a cached file.
type FileInfo struct {
	Path    string     `json:"path"`
	Exists  bool       `json:"exists"`
	Size    int64      `json:"size,omitempty"`
	ModTime *time.Time `json:"mod_time,omitempty"`
}

// DebugInfo is the diagnostic view of one task.
type DebugInfo struct {
	Metadata   *task.Record     `json:"metadata"`
	Queue      *queue.TaskState `json:"queue,omitempty"`
	QueueError string           `json:"queue_error,omitempty"`
	SourceFile *FileInfo        `json:"source_file,omitempty"`
}

// Debug returns the record with broker state and source file details.
func (g *Gateway) Debug(ctx context.Context, id, owner string) (*DebugInfo, error) {
	rec, err := g.authorize(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	info := &DebugInfo{Metadata: rec}

	if qid := util.Coalesce(rec.QueueTaskID, rec.DispatchCorrelationID); qid != "" && g.inspector != nil {
		state, err := g.inspector.Task(qid)
		if err != nil {
			info.QueueError = err.Error()
		} else {
			info.Queue = state
		}
	}

	if rec.SavedFilename != "" {
		fi := &FileInfo{Path: rec.SavedFilename}
		if st, err := g.cache.Stat(rec.SavedFilename); err == nil {
			mod := st.ModTime().UTC()
			fi.Exists, fi.Size, fi.ModTime = true, st.Size(), &mod
		}
		info.SourceFile = fi
	}
	return info, nil
}
