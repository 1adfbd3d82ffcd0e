package storage

import (
	"errors"
	"fmt"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Default configuration values.
const (
	DefaultProvider  = ProviderS3
	DefaultKeyPrefix = "transcriber"
)

// Config holds object storage configuration. S3 settings are
// all-or-nothing: without bucket, access key and secret key the storage
// counts as not configured and sink or object-store requests are refused.
type Config struct {
	// Provider selects the storage backend: "s3" or "local".
	Provider string `mapstructure:"provider" json:"provider"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" json:"base_path"`

	Bucket   string `mapstructure:"bucket" json:"bucket"`
	Region   string `mapstructure:"region" json:"region"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	AccessKey string `mapstructure:"access_key" json:"-"`
	SecretKey string `mapstructure:"secret_key" json:"-"`

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`

	// KeyPrefix is the first segment of every results key.
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// IsConfigured reports whether every setting the provider needs is present.
func (c *Config) IsConfigured() bool {
	switch c.Provider {
	case ProviderS3:
		return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
	case ProviderLocal:
		return c.BasePath != ""
	}
	return false
}

// Validate checks the provider name. Missing credentials are not an error;
// they make the storage unconfigured.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderS3, ProviderLocal:
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	if c.KeyPrefix == "" {
		return errors.New("storage: key_prefix is required")
	}
	return nil
}
