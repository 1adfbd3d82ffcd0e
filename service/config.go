package service

import (
	"fmt"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/config"
	"github.com/kbukum/transcriber/database"
	"github.com/kbukum/transcriber/gateway"
	"github.com/kbukum/transcriber/httpclient"
	"github.com/kbukum/transcriber/observability"
	"github.com/kbukum/transcriber/queue"
	"github.com/kbukum/transcriber/redis"
	"github.com/kbukum/transcriber/server"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/transcription"
)

// Config is the configuration of every transcriber process. Sections a
// process does not use are still defaulted and validated so one config.yml
// serves all of them.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Store         store.Config         `yaml:"store" mapstructure:"store"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Queue         queue.Config         `yaml:"queue" mapstructure:"queue"`
	Cache         cache.Config         `yaml:"cache" mapstructure:"cache"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Gateway       gateway.Config       `yaml:"gateway" mapstructure:"gateway"`
	Ingress       httpclient.Config    `yaml:"ingress" mapstructure:"ingress"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section. Redis is always configured: it is the
// queue broker even when records live in SQL.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Redis.ApplyDefaults()
	if c.Store.Backend == store.BackendSQL {
		c.Database.ApplyDefaults()
	}
	c.Queue.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Ingress.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []struct {
		section string
		fn      func() error
	}{
		{"store", c.Store.Validate},
		{"redis", c.Redis.Validate},
		{"queue", c.Queue.Validate},
		{"cache", c.Cache.Validate},
		{"storage", c.Storage.Validate},
		{"transcription", c.Transcription.Validate},
		{"server", c.Server.Validate},
		{"ingress", c.Ingress.Validate},
		{"observability", c.Observability.Validate},
	}
	if c.Store.Backend == store.BackendSQL {
		checks = append(checks, struct {
			section string
			fn      func() error
		}{"database", c.Database.Validate})
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("config.%s: %w", chk.section, err)
		}
	}
	return nil
}
