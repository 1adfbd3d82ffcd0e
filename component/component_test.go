package component

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/transcriber/logger"
)

// journal records lifecycle calls as "start:name" and "stop:name".
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	j.events = append(j.events, e)
	j.mu.Unlock()
}

func (j *journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.events, " ")
}

type fake struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
	health   Health
	delay    time.Duration
}

func (f *fake) Name() string { return f.name }

func (f *fake) Start(context.Context) error {
	if f.j != nil {
		f.j.add("start:" + f.name)
	}
	return f.startErr
}

func (f *fake) Stop(context.Context) error {
	if f.j != nil {
		f.j.add("stop:" + f.name)
	}
	return f.stopErr
}

func (f *fake) Health(context.Context) Health {
	time.Sleep(f.delay)
	h := f.health
	h.Name = f.name
	return h
}

func newRegistry(t *testing.T, comps ...Component) *Registry {
	t.Helper()
	r := NewRegistry(logger.Nop())
	for _, c := range comps {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register(%s): %v", c.Name(), err)
		}
	}
	return r
}

func TestRegistryLifecycle(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name      string
		comps     func(j *journal) []Component
		wantStart bool
		wantStop  bool
		want      string
	}{
		{
			name: "start in order and stop in reverse",
			comps: func(j *journal) []Component {
				return []Component{&fake{name: "store", j: j}, &fake{name: "queue", j: j}, &fake{name: "reaper", j: j}}
			},
			wantStart: true,
			wantStop:  true,
			want:      "start:store start:queue start:reaper stop:reaper stop:queue stop:store",
		},
		{
			name: "failed start rolls back what already started",
			comps: func(j *journal) []Component {
				return []Component{&fake{name: "store", j: j}, &fake{name: "queue", j: j}, &fake{name: "server", j: j, startErr: errBoom}}
			},
			wantStop: true,
			want:     "start:store start:queue start:server stop:queue stop:store",
		},
		{
			name: "stop errors are reported after every component stopped",
			comps: func(j *journal) []Component {
				return []Component{&fake{name: "store", j: j, stopErr: errBoom}, &fake{name: "queue", j: j}}
			},
			wantStart: true,
			want:      "start:store start:queue stop:queue stop:store",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := &journal{}
			r := newRegistry(t, tc.comps(j)...)

			if err := r.StartAll(context.Background()); (err == nil) != tc.wantStart {
				t.Fatalf("StartAll error = %v", err)
			}
			err := r.StopAll(context.Background())
			if (err == nil) != tc.wantStop {
				t.Errorf("StopAll error = %v", err)
			}
			if err != nil && !errors.Is(err, errBoom) {
				t.Errorf("stop error should wrap the component error: %v", err)
			}
			if got := j.String(); got != tc.want {
				t.Errorf("journal = %q\nwant      %q", got, tc.want)
			}
		})
	}
}

func TestRegistry_DuplicateNames(t *testing.T) {
	r := newRegistry(t, &fake{name: "store"})
	if err := r.Register(&fake{name: "store"}); err == nil {
		t.Error("Register accepted a duplicate")
	}
	if err := r.Start(context.Background(), &fake{name: "store"}); err == nil {
		t.Error("Start accepted a duplicate")
	}
}

func TestRegistry_StopWithoutStartIsNoop(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, &fake{name: "store", j: j})
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if j.String() != "" {
		t.Errorf("unexpected calls %q", j)
	}
}

func TestRegistry_LateStart(t *testing.T) {
	j := &journal{}
	r := newRegistry(t, &fake{name: "store", j: j})
	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}

	if err := r.Start(ctx, &fake{name: "http-server", j: j}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx, &fake{name: "broken", j: j, startErr: errors.New("port in use")}); err == nil {
		t.Error("expected start error")
	}
	if r.Get("broken") != nil {
		t.Error("a component that failed to start must not be registered")
	}
	if r.Get("http-server") == nil || len(r.All()) != 2 {
		t.Errorf("registry holds %d components", len(r.All()))
	}

	if err := r.StopAll(ctx); err != nil {
		t.Fatal(err)
	}
	if want := "start:store start:http-server start:broken stop:http-server stop:store"; j.String() != want {
		t.Errorf("journal = %q, want %q", j, want)
	}
}

func TestRegistry_HealthAllKeepsOrderAndRunsConcurrently(t *testing.T) {
	r := newRegistry(t,
		&fake{name: "store", delay: 50 * time.Millisecond, health: Health{Status: StatusHealthy}},
		&fake{name: "queue", delay: 50 * time.Millisecond, health: Health{Status: StatusUnhealthy, Message: "timeout"}},
		&fake{name: "storage", delay: 50 * time.Millisecond, health: Health{Status: StatusDegraded}},
	)

	start := time.Now()
	hs := r.HealthAll(context.Background())
	if took := time.Since(start); took > 140*time.Millisecond {
		t.Errorf("health checks look sequential: %v", took)
	}
	var got []string
	for _, h := range hs {
		got = append(got, h.Name+"="+string(h.Status))
	}
	if want := "store=healthy queue=unhealthy storage=degraded"; strings.Join(got, " ") != want {
		t.Errorf("HealthAll = %v, want %s", got, want)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		healths []Health
		want    HealthStatus
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Health{{Status: StatusHealthy}, {Status: StatusHealthy, Critical: true}}, StatusHealthy},
		{"optional down", []Health{{Status: StatusUnhealthy}, {Status: StatusHealthy, Critical: true}}, StatusDegraded},
		{"critical degraded", []Health{{Status: StatusDegraded, Critical: true}}, StatusDegraded},
		{"critical down", []Health{{Status: StatusHealthy}, {Status: StatusUnhealthy, Critical: true}}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overall(tc.healths); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}
