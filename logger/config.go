package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config is the logging section shared by every transcriber process.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// Level is any zerolog level name; empty means info.
	Level string `yaml:"level" mapstructure:"level"`
	// Format is json, console or pretty.
	Format string `yaml:"format" mapstructure:"format"`
	// Output is stdout or stderr.
	Output  string `yaml:"output" mapstructure:"output"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
	Caller  bool   `yaml:"caller" mapstructure:"caller"`
}

func (c *Config) ApplyDefaults() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// Validate rejects level, format and output values the logger would
// otherwise silently replace.
func (c *Config) Validate() error {
	if lvl, err := zerolog.ParseLevel(c.Level); err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("logging.level %q is not a log level", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		return fmt.Errorf("logging.format must be %s, %s or %s (got %q)", FormatJSON, FormatConsole, FormatPretty, c.Format)
	}
	switch strings.ToLower(c.Output) {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("logging.output must be stdout or stderr (got %q)", c.Output)
	}
	return nil
}
