// Package scenarios replays scripted request and command timelines against
// a headless simulation and checks the resulting ledger.
package scenarios

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

type DroneDef struct {
	ID      string  `yaml:"id"`
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
	Battery float64 `yaml:"battery"`
}

func (d DroneDef) ToModel() model.Agent {
	return model.Agent{
		ID:       d.ID,
		Position: geo.Point{Lat: d.Lat, Lng: d.Lng},
		Battery:  d.Battery,
		Status:   model.AgentIdle,
	}
}

type RequestDef struct {
	AtTick   int      `yaml:"at_tick"`
	Name     string   `yaml:"name"`
	Phone    string   `yaml:"phone,omitempty"`
	Lat      float64  `yaml:"lat"`
	Lng      float64  `yaml:"lng"`
	Supplies []string `yaml:"supplies"`
}

type CommandDef struct {
	AtTick int      `yaml:"at_tick"`
	Drone  string   `yaml:"drone"`
	Type   string   `yaml:"type"`
	Lat    *float64 `yaml:"lat,omitempty"`
	Lng    *float64 `yaml:"lng,omitempty"`
}

func (c CommandDef) ToModel() model.Command {
	cmd := model.Command{Type: model.CommandType(c.Type)}
	if c.Lat != nil && c.Lng != nil {
		cmd.Position = &geo.Point{Lat: *c.Lat, Lng: *c.Lng}
	}
	return cmd
}

// Expected lists the request counts by status once every tick has run.
type Expected struct {
	Delivered int `yaml:"delivered"`
	Queued    int `yaml:"queued"`
	InFlight  int `yaml:"in_flight"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Seed        int64        `yaml:"seed"`
	Ticks       int          `yaml:"ticks"`
	Drones      []DroneDef   `yaml:"drones"`
	Requests    []RequestDef `yaml:"requests"`
	Commands    []CommandDef `yaml:"commands,omitempty"`
	Expected    Expected     `yaml:"expected"`
}

// Validate checks that the scenario can be replayed.
func (sc *Scenario) Validate() error {
	var errs []error
	if sc.Ticks <= 0 {
		errs = append(errs, errors.New("ticks must be positive"))
	}
	if len(sc.Drones) == 0 {
		errs = append(errs, errors.New("at least one drone is required"))
	}
	for i, r := range sc.Requests {
		if r.AtTick < 0 || r.AtTick >= sc.Ticks {
			errs = append(errs, fmt.Errorf("request %d: at_tick %d outside [0,%d)", i, r.AtTick, sc.Ticks))
		}
	}
	for i, c := range sc.Commands {
		if c.AtTick < 0 || c.AtTick >= sc.Ticks {
			errs = append(errs, fmt.Errorf("command %d: at_tick %d outside [0,%d)", i, c.AtTick, sc.Ticks))
		}
	}
	return errors.Join(errs...)
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = path
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}
