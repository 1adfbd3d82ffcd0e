package bootstrap

import (
	"github.com/kbukum/transcriber/config"
)

// Config is satisfied by any process config that embeds
// config.ServiceConfig by value.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
