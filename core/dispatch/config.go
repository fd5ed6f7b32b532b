package dispatch

import "fmt"

// DefaultMinBattery is the battery percentage a drone must exceed to be
// eligible for a new delivery.
const DefaultMinBattery = 20.0

// Config defines dispatch-related settings.
type Config struct {
	MinBattery float64 `json:"min_battery"`
}

// SetDefaults applies the default eligibility threshold.
func (c *Config) SetDefaults() {
	if c.MinBattery <= 0 {
		c.MinBattery = DefaultMinBattery
	}
}

// Validate checks that the threshold is a percentage.
func (c Config) Validate() error {
	if c.MinBattery < 0 || c.MinBattery >= 100 {
		return fmt.Errorf("dispatch: min_battery must be in [0,100), got %v", c.MinBattery)
	}
	return nil
}
