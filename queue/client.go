package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kbukum/transcriber/logger"
)

// Client enqueues work units.
type Client struct {
	client *asynq.Client
	cfg    Config
	log    *logger.Logger
}

// NewClient creates a client on the broker.
func NewClient(opt asynq.RedisConnOpt, cfg Config, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		client: asynq.NewClient(opt),
		cfg:    cfg,
		log:    log.WithComponent("queue"),
	}
}

// Enqueue submits p once and returns the broker's task id, which serves as
// the dispatch correlation id.
func (c *Client) Enqueue(ctx context.Context, p Payload) (string, error) {
	t, err := newTask(p,
		asynq.Queue(c.cfg.Queue),
		asynq.MaxRetry(c.cfg.Retries()),
		asynq.Timeout(c.cfg.Timeout),
		asynq.Retention(c.cfg.Retention),
	)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, t)
	if err != nil {
		return "", fmt.Errorf("queue: enqueue %s: %w", p.TaskID, err)
	}
	c.log.Debug("work unit enqueued", logger.Fields(logger.FieldTaskID, p.TaskID, "queue_task_id", info.ID, "queue", info.Queue))
	return info.ID, nil
}

// Close releases the broker connection.
func (c *Client) Close() error {
	return c.client.Close()
}
