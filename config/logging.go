package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LoggingConfig selects the application log level and output format.
type LoggingConfig struct {
	// Level is a zerolog level name such as "debug" or "warn".
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging: unknown format %s", c.Format)
	}
	return nil
}
