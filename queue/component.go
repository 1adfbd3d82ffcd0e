package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

// Component owns the API-side Client and Inspector.
type Component struct {
	opt       asynq.RedisConnOpt
	cfg       Config
	log       *logger.Logger
	client    *Client
	inspector *Inspector
}

// NewComponent creates the producer-side queue component.
func NewComponent(opt asynq.RedisConnOpt, cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{opt: opt, cfg: cfg, log: log}
}

// Client returns the enqueue client, or nil if not started.
func (c *Component) Client() *Client { return c.client }

// Inspector returns the broker inspector, or nil if not started.
func (c *Component) Inspector() *Inspector { return c.inspector }

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "queue" }

// Start opens the broker connections.
func (c *Component) Start(_ context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.client = NewClient(c.opt, c.cfg, c.log)
	c.inspector = NewInspector(c.opt, c.cfg)
	return nil
}

// Stop closes the broker connections.
func (c *Component) Stop(_ context.Context) error {
	var err error
	if c.client != nil {
		err = c.client.Close()
	}
	if c.inspector != nil {
		if cerr := c.inspector.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Health lists the broker queues as a reachability probe.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Critical: true}
	if c.inspector == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "queue not initialized"
		return h
	}
	if _, err := c.inspector.insp.Queues(); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("broker unreachable: %v", err)
	}
	return h
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Queue",
		Type:    "asynq",
		Details: fmt.Sprintf("queue=%s max_retry=%d timeout=%s", c.cfg.Queue, c.cfg.Retries(), c.cfg.Timeout),
	}
}
