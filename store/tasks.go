package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/transcriber/task"
)

// ErrNoChange can be returned by an Update mutator to skip the write.
var ErrNoChange = errors.New("store: no change")

const (
	defaultMaxAttempts = 5
	conflictBackoff    = 10 * time.Millisecond
)

// Tasks is the typed view of the metadata store used by every component
// that reads or writes task records.
type Tasks struct {
	store       Store
	maxAttempts int
}

// NewTasks wraps a raw document store.
func NewTasks(s Store) *Tasks {
	return &Tasks{store: s, maxAttempts: defaultMaxAttempts}
}

// Get loads a record. Missing records return ErrNotFound.
func (t *Tasks) Get(ctx context.Context, id string) (*task.Record, error) {
	doc, err := t.store.Get(ctx, task.Key(id))
	if err != nil {
		return nil, err
	}
	rec, err := task.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return rec, nil
}

// Create stores a new record. It fails with ErrVersionConflict when the id is taken.
func (t *Tasks) Create(ctx context.Context, rec *task.Record) error {
	if rec.TaskID == "" {
		return errors.New("store: task id is required")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("store: invalid status %q", rec.Status)
	}
	if err := rec.CheckPaths(); err != nil {
		return err
	}
	rec.Version = 1
	doc, err := rec.Marshal()
	if err != nil {
		return err
	}
	if err := t.store.Put(ctx, task.Key(rec.TaskID), doc, 0); err != nil {
		rec.Version = 0
		return err
	}
	return nil
}

// Update applies fn to the current record and writes it back with a
// compare-and-swap on the version, re-reading and retrying on conflict.
// fn may run several times and must only mutate the record it is given.
// Status changes must follow the transition table and task_id/client_id
// are immutable; violations abort without writing.
func (t *Tasks) Update(ctx context.Context, id string, fn func(*task.Record) error) (*task.Record, error) {
	var lastErr error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * conflictBackoff):
			}
		}

		rec, err := t.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		before := *rec

		if err := fn(rec); err != nil {
			if errors.Is(err, ErrNoChange) {
				return &before, nil
			}
			return nil, err
		}
		if err := checkUpdate(&before, rec); err != nil {
			return nil, err
		}

		rec.Version = before.Version + 1
		doc, err := rec.Marshal()
		if err != nil {
			return nil, err
		}
		err = t.store.Put(ctx, task.Key(id), doc, before.Version)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update task %s after %d attempts: %w", id, t.maxAttempts, lastErr)
}

func checkUpdate(before, after *task.Record) error {
	if after.TaskID != before.TaskID || after.ClientID != before.ClientID {
		return errors.New("store: task_id and client_id are immutable")
	}
	if after.Status != before.Status && !task.CanTransition(before.Status, after.Status) {
		return fmt.Errorf("%w: %s -> %s", task.ErrIllegalTransition, before.Status, after.Status)
	}
	return after.CheckPaths()
}

// Delete removes rec only if it is unchanged since it was read.
func (t *Tasks) Delete(ctx context.Context, rec *task.Record) error {
	return t.store.Delete(ctx, task.Key(rec.TaskID), rec.Version)
}

// IDs lists the ids of every stored task.
func (t *Tasks) IDs(ctx context.Context) ([]string, error) {
	keys, err := t.store.ListKeys(ctx, task.KeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, task.KeyPrefix))
	}
	return ids, nil
}

// Ping checks that the backing store answers.
func (t *Tasks) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}
