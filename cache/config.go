package cache

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults for the cache section.
const (
	DefaultRoot           = "./cache"
	DefaultExpirySeconds  = 7 * 24 * 60 * 60
	DefaultReaperSchedule = "@daily"
)

// Config holds the cache filesystem and retention settings.
type Config struct {
	// Root is the directory holding source audio and artifacts.
	Root string `mapstructure:"root" json:"root"`
	// ExpirySeconds is the retention window for task files and records.
	ExpirySeconds int `mapstructure:"expiry" json:"expiry"`
	// ReaperEnabled runs the retention sweep in this process.
	ReaperEnabled *bool `mapstructure:"reaper_enabled" json:"reaper_enabled"`
	// ReaperSchedule is a cron spec or descriptor such as "@daily" or "@every 6h".
	ReaperSchedule string `mapstructure:"reaper_schedule" json:"reaper_schedule"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.ExpirySeconds <= 0 {
		c.ExpirySeconds = DefaultExpirySeconds
	}
	if c.ReaperEnabled == nil {
		enabled := true
		c.ReaperEnabled = &enabled
	}
	if c.ReaperSchedule == "" {
		c.ReaperSchedule = DefaultReaperSchedule
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("cache root is required")
	}
	if c.ExpirySeconds <= 0 {
		return fmt.Errorf("cache expiry must be > 0")
	}
	if _, err := cron.ParseStandard(c.ReaperSchedule); err != nil {
		return fmt.Errorf("invalid reaper_schedule %q: %w", c.ReaperSchedule, err)
	}
	return nil
}

// Retention returns the retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.ExpirySeconds) * time.Second
}

// Reaper reports whether the sweep runs in this process.
func (c *Config) Reaper() bool {
	return c.ReaperEnabled == nil || *c.ReaperEnabled
}
