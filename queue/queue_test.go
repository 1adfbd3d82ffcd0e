package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"

	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/redis"
	"github.com/kbukum/transcriber/util"
)

func startBroker(t *testing.T) asynq.RedisClientOpt {
	t.Helper()
	mini := miniredis.RunT(t)
	return RedisOpt(redis.Config{Addr: mini.Addr()})
}

func pollUntil(t *testing.T, timeout time.Duration, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !f() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func samplePayload() Payload {
	return Payload{TaskID: "t1", AudioPath: "/cache/t1_a.wav", ClientID: "c1", OriginalFilename: "a.wav"}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Queue != DefaultQueue || cfg.Concurrency != 1 || cfg.Retries() != DefaultMaxRetry || cfg.Timeout != DefaultTimeout {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	noRetry := Config{MaxRetry: util.Ptr(0)}
	noRetry.ApplyDefaults()
	if noRetry.Retries() != 0 {
		t.Errorf("max_retry: 0 should disable redelivery, got %d", noRetry.Retries())
	}
	if err := noRetry.Validate(); err != nil {
		t.Errorf("max_retry: 0 should be valid: %v", err)
	}

	negative := Config{MaxRetry: util.Ptr(-1)}
	negative.ApplyDefaults()
	if err := negative.Validate(); err == nil {
		t.Error("expected negative max_retry to fail validation")
	}
}

func TestPayloadValidate(t *testing.T) {
	if err := samplePayload().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := samplePayload()
	p.ClientID = ""
	if err := p.Validate(); err == nil {
		t.Error("expected missing client id to fail")
	}
	if _, err := newTask(p); err == nil {
		t.Error("newTask should validate")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	task, err := newTask(samplePayload())
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TypeTranscribe {
		t.Errorf("unexpected type %q", task.Type())
	}
	got, err := parsePayload(task)
	if err != nil || got != samplePayload() {
		t.Errorf("parsePayload = %+v, %v", got, err)
	}
	if _, err := parsePayload(asynq.NewTask(TypeTranscribe, []byte("{"))); err == nil {
		t.Error("expected decode error")
	}
}

func TestClientEnqueue_InspectorSeesTask(t *testing.T) {
	opt := startBroker(t)
	cfg := Config{Queue: "test"}
	client := NewClient(opt, cfg, logger.Nop())
	defer client.Close()
	insp := NewInspector(opt, cfg)
	defer insp.Close()

	id, err := client.Enqueue(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("expected a correlation id")
	}
	state, err := insp.Task(id)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if state.State != "pending" || state.MaxRetry != DefaultMaxRetry {
		t.Errorf("unexpected state %+v", state)
	}
	if _, err := insp.Task("missing"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestProcessTask_ErrorClassification(t *testing.T) {
	boom := errors.New("pipeline failed")
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"success", nil, false},
		{"handler failure is final", boom, true},
		{"transient failure may retry", ErrTransient, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Payload
			s := &Server{worker: "w1", log: logger.Nop(), handler: HandlerFunc(func(_ context.Context, p Payload, d Delivery) error {
				got = p
				if d.Worker != "w1" {
					t.Errorf("unexpected worker %q", d.Worker)
				}
				return tc.err
			})}
			task, _ := newTask(samplePayload())
			err := s.ProcessTask(context.Background(), task)
			if got.TaskID != "t1" {
				t.Errorf("handler did not receive payload: %+v", got)
			}
			if errors.Is(err, asynq.SkipRetry) != tc.skipRetry {
				t.Errorf("SkipRetry = %v, want %v (err=%v)", errors.Is(err, asynq.SkipRetry), tc.skipRetry, err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Errorf("original error lost: %v", err)
			}
		})
	}
}

func TestProcessTask_BadPayloadIsFinal(t *testing.T) {
	s := &Server{log: logger.Nop(), handler: HandlerFunc(func(context.Context, Payload, Delivery) error {
		t.Fatal("handler must not run")
		return nil
	})}
	err := s.ProcessTask(context.Background(), asynq.NewTask(TypeTranscribe, []byte(`{"task_id":""}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestServer_DeliversAndArchivesFailures(t *testing.T) {
	opt := startBroker(t)
	cfg := Config{Queue: "it", Concurrency: 2, Retention: time.Hour}

	var mu sync.Mutex
	seen := map[string]Delivery{}
	handler := HandlerFunc(func(_ context.Context, p Payload, d Delivery) error {
		mu.Lock()
		seen[p.TaskID] = d
		mu.Unlock()
		if p.TaskID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	srv := NewServer(opt, cfg, handler, "worker-1", logger.Nop())
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop(context.Background())

	client := NewClient(opt, cfg, logger.Nop())
	defer client.Close()
	insp := NewInspector(opt, cfg)
	defer insp.Close()

	good := samplePayload()
	bad := samplePayload()
	bad.TaskID = "bad"
	goodID, err := client.Enqueue(context.Background(), good)
	if err != nil {
		t.Fatal(err)
	}
	badID, err := client.Enqueue(context.Background(), bad)
	if err != nil {
		t.Fatal(err)
	}

	pollUntil(t, 10*time.Second, func() bool {
		g, err1 := insp.Task(goodID)
		b, err2 := insp.Task(badID)
		return err1 == nil && err2 == nil && g.State == "completed" && b.State == "archived"
	})

	mu.Lock()
	defer mu.Unlock()
	if seen["t1"].QueueTaskID != goodID || seen["t1"].Worker != "worker-1" {
		t.Errorf("unexpected delivery %+v", seen["t1"])
	}
	b, _ := insp.Task(badID)
	if b.Retried != 0 || b.LastError == "" {
		t.Errorf("failed unit should be archived without retries, got %+v", b)
	}
}
