// Package config loads the simulator configuration from a YAML or JSON file
// with K_-prefixed environment overrides (K_SIMULATION__FLEET_SIZE=8 sets
// simulation.fleet_size).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dronedispatch/api"
	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/sim"
	"github.com/kilianp07/dronedispatch/infra/monitoring"
	"github.com/kilianp07/dronedispatch/infra/mqtt"
)

type Config struct {
	Simulation sim.Config        `json:"simulation"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Server     api.Config        `json:"server"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Metrics    metrics.Config    `json:"metrics"`
	Journal    journal.Config    `json:"journal"`
	Logging    LoggingConfig     `json:"logging"`
	Sentry     monitoring.Config `json:"sentry"`
}

// Default returns a configuration with every section defaulted, used when
// no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Server.SetDefaults()
	if c.MQTT.Enabled {
		c.MQTT.SetDefaults()
	}
	c.Journal.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Simulation, c.Dispatch, c.Server, c.MQTT, c.Journal, c.Logging} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads path, applies environment overrides, defaults and validation.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
