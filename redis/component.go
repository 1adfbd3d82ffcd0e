package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/resilience"
)

// Component owns the shared Client. The redis record store lives behind it,
// so it reports as critical.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil until Start succeeds.
func (c *Component) Client() *Client { return c.client }

var _ component.Component = (*Component)(nil)

func (c *Component) Name() string { return "redis" }

// Start connects and pings, retrying while redis is still coming up.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	retry := resilience.RetryConfig{
		MaxAttempts:    c.cfg.StartAttempts,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     3 * time.Second,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.log.WithError(err).Warn("redis not reachable yet", logger.Fields("attempt", attempt, "backoff", wait.String()))
		},
	}
	if _, err := resilience.Retry(ctx, retry, func() (struct{}, error) {
		return struct{}{}, client.Ping(ctx)
	}); err != nil {
		return errors.Join(fmt.Errorf("redis start: %w", err), client.Close())
	}
	c.client = client
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Critical: true}
	switch {
	case c.client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "redis not initialized"
	default:
		if err := c.client.Ping(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, "ping failed: "+err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	o := c.cfg.Options()
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d", o.Addr, o.DB, o.PoolSize),
	}
}
