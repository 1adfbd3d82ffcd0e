package queue

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// TaskState is the broker-side view of one work unit.
type TaskState struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	Retried      int        `json:"retried"`
	MaxRetry     int        `json:"max_retry"`
	LastError    string     `json:"last_error,omitempty"`
	LastFailedAt *time.Time `json:"last_failed_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// QueueStats summarizes the broker queue.
type QueueStats struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Scheduled int `json:"scheduled"`
	Retry     int `json:"retry"`
	Archived  int `json:"archived"`
	Completed int `json:"completed"`
}

// ErrUnknownTask is returned when the broker no longer knows a task id.
var ErrUnknownTask = errors.New("queue: task not known to the broker")

// Inspector reads broker-side state.
type Inspector struct {
	insp  *asynq.Inspector
	queue string
}

// NewInspector creates an inspector for the configured queue.
func NewInspector(opt asynq.RedisConnOpt, cfg Config) *Inspector {
	cfg.ApplyDefaults()
	return &Inspector{insp: asynq.NewInspector(opt), queue: cfg.Queue}
}

// Task returns the broker state of a work unit.
func (i *Inspector) Task(id string) (*TaskState, error) {
	info, err := i.insp.GetTaskInfo(i.queue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrUnknownTask
		}
		return nil, err
	}
	ts := &TaskState{
		ID:        info.ID,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.LastFailedAt.IsZero() {
		t := info.LastFailedAt.UTC()
		ts.LastFailedAt = &t
	}
	if !info.CompletedAt.IsZero() {
		t := info.CompletedAt.UTC()
		ts.CompletedAt = &t
	}
	return ts, nil
}

// Stats returns the queue counters.
func (i *Inspector) Stats() (*QueueStats, error) {
	info, err := i.insp.GetQueueInfo(i.queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return &QueueStats{}, nil
		}
		return nil, err
	}
	return &QueueStats{
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Completed: info.Completed,
	}, nil
}

// Close releases the broker connection.
func (i *Inspector) Close() error { return i.insp.Close() }
