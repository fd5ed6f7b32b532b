package sim

import (
	"fmt"
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// Config holds the simulation parameters. Distances are in degrees and
// battery values in percent.
type Config struct {
	FleetSize    int       `json:"fleet_size"`
	Center       geo.Point `json:"center"`
	SpawnSpread  float64   `json:"spawn_spread"`
	TickMS       int       `json:"tick_ms"`
	StepLength   float64   `json:"step_length"`
	BatteryDrain float64   `json:"battery_drain"`
	BatteryFloor float64   `json:"battery_floor"`
	ScanJitter   float64   `json:"scan_jitter"`
	WanderJitter float64   `json:"wander_jitter"`
	// TraceCapacity bounds the map point ring buffer.
	TraceCapacity int `json:"trace_capacity"`
	// BroadcastPoints is the number of recent points sent with map-update.
	BroadcastPoints int `json:"broadcast_points"`
	// Seed fixes the random source; zero seeds from the clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig mirrors the demo deployment around New Delhi.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.FleetSize <= 0 {
		c.FleetSize = 4
	}
	if c.Center == (geo.Point{}) {
		c.Center = geo.Point{Lat: 28.7041, Lng: 77.1025}
	}
	if c.SpawnSpread <= 0 {
		c.SpawnSpread = 0.05
	}
	if c.TickMS <= 0 {
		c.TickMS = 1000
	}
	if c.StepLength <= 0 {
		c.StepLength = 0.0008
	}
	if c.BatteryDrain <= 0 {
		c.BatteryDrain = 0.02
	}
	if c.BatteryFloor <= 0 {
		c.BatteryFloor = 5
	}
	if c.ScanJitter <= 0 {
		c.ScanJitter = 0.0005
	}
	if c.WanderJitter <= 0 {
		c.WanderJitter = 0.0002
	}
	if c.TraceCapacity <= 0 {
		c.TraceCapacity = 1000
	}
	if c.BroadcastPoints <= 0 {
		c.BroadcastPoints = 200
	}
}

// Validate checks ranges after defaults were applied.
func (c Config) Validate() error {
	if !c.Center.Valid() {
		return fmt.Errorf("simulation: center must be finite")
	}
	if c.BatteryFloor >= 100 {
		return fmt.Errorf("simulation: battery_floor must be below 100")
	}
	if c.BroadcastPoints > c.TraceCapacity {
		return fmt.Errorf("simulation: broadcast_points (%d) exceeds trace_capacity (%d)", c.BroadcastPoints, c.TraceCapacity)
	}
	return nil
}

// TickInterval returns the tick period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}
