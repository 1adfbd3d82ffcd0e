package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/cache/cachetest"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/storage/local"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/store/storetest"
	"github.com/kbukum/transcriber/task"
	"github.com/kbukum/transcriber/transcript"
	"github.com/kbukum/transcriber/transcription/transcriptiontest"
	"github.com/kbukum/transcriber/util"
)

const taskID = "3f1c9a2e-0000-4000-8000-000000000001"

type fixture struct {
	tasks    *store.Tasks
	cache    *cache.Cache
	provider *transcriptiontest.Provider
	bucket   afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tasks, _ := storetest.NewRedis(t)
	c, _ := cachetest.New(t)
	return &fixture{
		tasks:    tasks,
		cache:    c,
		provider: transcriptiontest.New(12),
		bucket:   afero.NewMemMapFs(),
	}
}

func (f *fixture) executor(opts ...Option) *Executor {
	return New(f.tasks, f.cache, transcript.NewPipeline(f.provider), logger.Nop(), opts...)
}

func (f *fixture) sink() storage.Storage {
	return local.NewWithFs("/bucket", f.bucket)
}

// seed stores a dispatched task with its source audio and returns the payload.
func (f *fixture) seed(t *testing.T, status task.Status, resultsPath string) queue.Payload {
	t.Helper()
	src := task.SourcePath(taskID, "call.wav")
	if _, err := f.cache.Save(src, strings.NewReader("RIFF-audio"), 0); err != nil {
		t.Fatalf("save source: %v", err)
	}
	rec := &task.Record{
		TaskID:           taskID,
		ClientID:         "acme",
		Status:           status,
		TaskType:         task.TypeFileUpload,
		OriginalFilename: "call.wav",
		SavedFilename:    src,
	}
	if resultsPath != "" {
		rec.S3ResultsPath = util.Ptr(resultsPath)
	}
	if err := f.tasks.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	return queue.Payload{
		TaskID:           taskID,
		AudioPath:        f.cache.Abs(src),
		ClientID:         "acme",
		S3ResultsPath:    resultsPath,
		OriginalFilename: "call.wav",
	}
}

func (f *fixture) get(t *testing.T) *task.Record {
	t.Helper()
	rec, err := f.tasks.Get(context.Background(), taskID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return rec
}

var delivery = queue.Delivery{QueueTaskID: "q-1", Worker: "worker-a"}

func TestHandle_CompletesWithoutSink(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "")

	if err := f.executor().Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	rec := f.get(t)
	if rec.Status != task.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%v)", rec.Status, util.Deref(rec.ErrorMessage))
	}
	if rec.TranscribedJSONFile == nil || rec.TranscribedMDFile == nil {
		t.Fatal("completed tasks must carry both artifact paths")
	}
	if rec.S3JSONURL != nil || rec.S3MDURL != nil {
		t.Errorf("no sink requested, got s3 urls %v %v", rec.S3JSONURL, rec.S3MDURL)
	}
	if rec.WorkerNode != "worker-a" || rec.QueueTaskID != "q-1" {
		t.Errorf("expected worker diagnostics, got %q %q", rec.WorkerNode, rec.QueueTaskID)
	}
	if rec.ProcessingStartTime == nil || rec.ProcessingEndTime == nil {
		t.Error("expected processing start and end times")
	}

	wantJSON, wantMD := task.ArtifactPaths(taskID, "call.wav")
	if *rec.TranscribedJSONFile != wantJSON || *rec.TranscribedMDFile != wantMD {
		t.Errorf("unexpected artifact paths %s %s", *rec.TranscribedJSONFile, *rec.TranscribedMDFile)
	}
	for _, p := range []string{wantJSON, wantMD} {
		if ok, _ := f.cache.Exists(p); !ok {
			t.Errorf("artifact %s not written", p)
		}
	}
	if got := f.provider.Calls(); len(got) != 1 || got[0] != "RIFF-audio" {
		t.Errorf("pipeline should read the cached source once, got %v", got)
	}
}

func TestHandle_UploadsToSink(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "runs/q1")

	if err := f.executor(WithSink(f.sink(), "transcriber")).Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	rec := f.get(t)
	if rec.Status != task.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", rec.Status)
	}
	if util.Deref(rec.S3JSONURL) != "file:///bucket/transcriber/acme/runs/q1.json" {
		t.Errorf("unexpected json location %q", util.Deref(rec.S3JSONURL))
	}
	if util.Deref(rec.S3MDURL) != "file:///bucket/transcriber/acme/runs/q1.md" {
		t.Errorf("unexpected md location %q", util.Deref(rec.S3MDURL))
	}
	md, err := afero.ReadFile(f.bucket, "/transcriber/acme/runs/q1.md")
	if err != nil || !strings.Contains(string(md), "sentence number 1") {
		t.Errorf("uploaded markdown missing or wrong: %v %q", err, md)
	}
}

type failingSink struct {
	storage.Storage
	failExt string
}

func (s failingSink) Upload(ctx context.Context, key string, r io.Reader, ct string) error {
	if strings.HasSuffix(key, s.failExt) {
		return errors.New("access denied")
	}
	return s.Storage.Upload(ctx, key, r, ct)
}

func TestHandle_PartialUploadFailure(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "runs/q1")
	sink := failingSink{Storage: f.sink(), failExt: ".md"}

	if err := f.executor(WithSink(sink, "transcriber")).Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("partial upload failure is not an error: %v", err)
	}

	rec := f.get(t)
	if rec.Status != task.StatusCompletedS3Failures {
		t.Fatalf("expected %s, got %s", task.StatusCompletedS3Failures, rec.Status)
	}
	if rec.S3JSONURL == nil || rec.S3MDURL != nil {
		t.Errorf("expected only the json location, got %v %v", rec.S3JSONURL, rec.S3MDURL)
	}
	if rec.TranscribedJSONFile == nil || rec.TranscribedMDFile == nil {
		t.Error("local artifacts must still be recorded")
	}
}

func TestHandle_SinkRequestedButNotConfigured(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "runs/q1")

	if err := f.executor().Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rec := f.get(t); rec.Status != task.StatusCompletedS3Failures {
		t.Fatalf("expected %s, got %s", task.StatusCompletedS3Failures, rec.Status)
	}
}

func TestHandle_MissingSourceIsFatal(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "")
	if err := f.cache.Remove(task.SourcePath(taskID, "call.wav")); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	err := f.executor().Handle(context.Background(), p, delivery)
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
	if errors.Is(err, queue.ErrTransient) {
		t.Error("a missing source must not be retried")
	}
	rec := f.get(t)
	if rec.Status != task.StatusFailed || !strings.Contains(util.Deref(rec.ErrorMessage), "not found") {
		t.Errorf("expected FAILED with reason, got %s %q", rec.Status, util.Deref(rec.ErrorMessage))
	}
	if rec.ProcessingEndTime == nil {
		t.Error("expected processing end time on failure")
	}
	if len(f.provider.Calls()) != 0 {
		t.Error("pipeline must not run without a source")
	}
}

func TestHandle_SourceOutsideCacheIsFatal(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "")
	p.AudioPath = "/etc/passwd"

	if err := f.executor().Handle(context.Background(), p, delivery); !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
	if rec := f.get(t); rec.Status != task.StatusFailed {
		t.Errorf("expected FAILED, got %s", rec.Status)
	}
}

func TestHandle_PipelineFailureRecordsAndPropagates(t *testing.T) {
	f := newFixture(t)
	f.provider.Err = errors.New("sidecar returned 500")
	p := f.seed(t, task.StatusPendingDispatch, "")

	err := f.executor().Handle(context.Background(), p, delivery)
	if err == nil || !strings.Contains(err.Error(), "sidecar returned 500") {
		t.Fatalf("expected pipeline error to propagate, got %v", err)
	}
	rec := f.get(t)
	if rec.Status != task.StatusFailed {
		t.Fatalf("expected FAILED, got %s", rec.Status)
	}
	if !strings.Contains(util.Deref(rec.ErrorMessage), "sidecar returned 500") {
		t.Errorf("expected captured message, got %q", util.Deref(rec.ErrorMessage))
	}
	if rec.TranscribedJSONFile != nil || rec.TranscribedMDFile != nil {
		t.Error("failed tasks must not carry artifact paths")
	}
}

func TestHandle_DuplicateDeliveryOfFinishedTask(t *testing.T) {
	for _, status := range []task.Status{task.StatusCompleted, task.StatusCompletedS3Failures, task.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			p := f.seed(t, task.StatusPendingDispatch, "")
			if _, err := f.tasks.Update(context.Background(), taskID, func(r *task.Record) error {
				return r.Transition(task.StatusProcessing, time.Now())
			}); err != nil {
				t.Fatalf("seed processing: %v", err)
			}
			if _, err := f.tasks.Update(context.Background(), taskID, func(r *task.Record) error {
				if status.IsCompleted() {
					r.TranscribedJSONFile = util.Ptr("x.json")
					r.TranscribedMDFile = util.Ptr("x.md")
				}
				return r.Transition(status, time.Now())
			}); err != nil {
				t.Fatalf("seed status: %v", err)
			}
			before := f.get(t)

			if err := f.executor().Handle(context.Background(), p, delivery); err != nil {
				t.Fatalf("duplicate delivery should be acknowledged, got %v", err)
			}
			after := f.get(t)
			if after.Status != status || after.Version != before.Version {
				t.Errorf("finished task must be untouched: %s v%d -> %s v%d", before.Status, before.Version, after.Status, after.Version)
			}
			if len(f.provider.Calls()) != 0 {
				t.Error("pipeline must not run for a finished task")
			}
		})
	}
}

func TestHandle_RedeliveryAfterWorkerLoss(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusProcessing, "")

	if err := f.executor().Handle(context.Background(), p, queue.Delivery{QueueTaskID: "q-1", Retried: 1, Worker: "worker-b"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	rec := f.get(t)
	if rec.Status != task.StatusCompleted || rec.WorkerNode != "worker-b" {
		t.Errorf("expected COMPLETED on worker-b, got %s on %s", rec.Status, rec.WorkerNode)
	}
}

func TestHandle_MissingRecordIsDropped(t *testing.T) {
	f := newFixture(t)
	p := queue.Payload{TaskID: "gone", AudioPath: f.cache.Abs("gone_a.wav"), ClientID: "acme"}
	if err := f.executor().Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("expected nil for a missing record, got %v", err)
	}
}

func TestHandle_StoreUnavailableAtPickupIsTransient(t *testing.T) {
	tasks, mini := storetest.NewRedis(t)
	c, _ := cachetest.New(t)
	e := New(tasks, c, transcript.NewPipeline(transcriptiontest.New(3)), logger.Nop())
	mini.SetError("ERR server down")

	err := e.Handle(context.Background(), queue.Payload{TaskID: taskID, AudioPath: "/cache/x.wav", ClientID: "acme"}, delivery)
	if !errors.Is(err, queue.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHandle_RecordDeletedMidRunDiscardsArtifacts(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, task.StatusPendingDispatch, "")
	// Delete the record while the pipeline runs, as a concurrent release would.
	e := New(f.tasks, f.cache, pipelineFunc(func(ctx context.Context, audio io.Reader, source string) (*transcript.Document, error) {
		rec, err := f.tasks.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := f.tasks.Delete(ctx, rec); err != nil {
			return nil, err
		}
		return transcript.NewPipeline(f.provider).Run(ctx, audio, source)
	}), logger.Nop())

	if err := e.Handle(context.Background(), p, delivery); err != nil {
		t.Fatalf("expected nil once the record is gone, got %v", err)
	}
	jsonPath, mdPath := task.ArtifactPaths(taskID, "call.wav")
	for _, p := range []string{jsonPath, mdPath} {
		if ok, _ := f.cache.Exists(p); ok {
			t.Errorf("orphaned artifact %s should be removed", p)
		}
	}
}

type pipelineFunc func(ctx context.Context, audio io.Reader, source string) (*transcript.Document, error)

func (f pipelineFunc) Run(ctx context.Context, audio io.Reader, source string) (*transcript.Document, error) {
	return f(ctx, audio, source)
}

func TestHandle_DeliveryContextEndsMidPipeline(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 100*time.Millisecond)
		}, context.DeadlineExceeded},
		{"shutdown abort", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(50*time.Millisecond, cancel)
			return ctx, cancel
		}, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.seed(t, task.StatusPendingDispatch, "")
			e := New(f.tasks, f.cache, pipelineFunc(func(ctx context.Context, _ io.Reader, _ string) (*transcript.Document, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}), logger.Nop())

			ctx, cancel := tt.ctx()
			defer cancel()
			err := e.Handle(ctx, p, delivery)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if errors.Is(err, queue.ErrTransient) {
				t.Error("a recorded failure must not be redelivered")
			}
			ae, ok := apperrors.AsAppError(err)
			if !ok || ae.Code != apperrors.ErrCodeProcessingFailed {
				t.Errorf("expected PROCESSING_FAILED, got %v", err)
			}

			rec := f.get(t)
			if rec.Status != task.StatusFailed {
				t.Fatalf("expected FAILED after the delivery ended, got %s", rec.Status)
			}
			if msg := util.Deref(rec.ErrorMessage); !strings.HasPrefix(msg, "transcription: ") || !strings.Contains(msg, tt.wantErr.Error()) {
				t.Errorf("unexpected error message %q", msg)
			}
			if rec.ProcessingEndTime == nil {
				t.Error("expected processing end time")
			}
		})
	}
}

func TestHandle_UnknownStatusIsNotRetried(t *testing.T) {
	tasks, mini := storetest.NewRedis(t)
	c, _ := cachetest.New(t)
	mini.Set(task.Key(taskID), `{"task_id":"`+taskID+`","client_id":"acme","status":"ARCHIVED","version":1}`)
	provider := transcriptiontest.New(3)
	e := New(tasks, c, transcript.NewPipeline(provider), logger.Nop())

	err := e.Handle(context.Background(), queue.Payload{TaskID: taskID, AudioPath: c.Abs("x.wav"), ClientID: "acme"}, delivery)
	if !errors.Is(err, task.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if errors.Is(err, queue.ErrTransient) {
		t.Error("a record that can never be picked up must not be redelivered")
	}
	if len(provider.Calls()) != 0 {
		t.Error("pipeline must not run")
	}
}
