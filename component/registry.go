package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/transcriber/logger"
)

// DefaultStopTimeout bounds each component's Stop when the caller's context
// has no earlier deadline.
const DefaultStopTimeout = 10 * time.Second

type slot struct {
	c       Component
	running bool
}

// Registry owns the components of one process. They start in registration
// order and stop in reverse, so dependencies such as the record store come
// up before the queue server and go down after it.
type Registry struct {
	StopTimeout time.Duration

	log   *logger.Logger
	mu    sync.RWMutex
	slots []*slot
	index map[string]*slot
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		StopTimeout: DefaultStopTimeout,
		log:         log.WithComponent("registry"),
		index:       make(map[string]*slot),
	}
}

func (r *Registry) add(c Component, running bool) error {
	name := c.Name()
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	s := &slot{c: c, running: running}
	r.slots = append(r.slots, s)
	r.index[name] = s
	return nil
}

// Register queues c for StartAll.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(c, false)
}

// StartAll starts every registered component that is not running yet. If
// one fails, the ones it already started are stopped again.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.running {
			continue
		}
		name := s.c.Name()
		if err := s.c.Start(ctx); err != nil {
			r.log.WithError(err).Error("component start failed", logger.Fields(logger.FieldComponent, name))
			if rbErr := r.stopRunning(ctx); rbErr != nil {
				r.log.WithError(rbErr).Warn("rollback after failed start was incomplete")
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		s.running = true
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, name))
	}
	r.log.Info("components started", logger.Fields("count", len(r.slots)))
	return nil
}

// Start starts c and registers it only if that succeeds. Components whose
// construction needs running infrastructure, like the HTTP server whose
// handlers hold started clients, join the registry this way.
func (r *Registry) Start(ctx context.Context, c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.index[c.Name()]; dup {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Name(), err)
	}
	return r.add(c, true)
}

// StopAll stops running components in reverse order and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRunning(ctx)
}

func (r *Registry) stopRunning(ctx context.Context) error {
	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		if !s.running {
			continue
		}
		name := s.c.Name()
		sctx, cancel := context.WithTimeout(ctx, r.StopTimeout)
		err := s.c.Stop(sctx)
		cancel()
		s.running = false
		if err != nil {
			r.log.WithError(err).Error("component stop failed", logger.Fields(logger.FieldComponent, name))
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		r.log.Info("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll checks every component concurrently and returns the results in
// registration order. A slow store probe does not hold up the others.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	comps := make([]Component, len(r.slots))
	for i, s := range r.slots {
		comps[i] = s.c
	}
	r.mu.RUnlock()

	out := make([]Health, len(comps))
	var wg sync.WaitGroup
	for i, c := range comps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = c.Health(ctx)
		}()
	}
	wg.Wait()
	return out
}

// Get returns the component registered under name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.index[name]; ok {
		return s.c
	}
	return nil
}

// All lists components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.c
	}
	return out
}
