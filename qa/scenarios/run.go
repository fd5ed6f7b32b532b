package scenarios

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dronedispatch/core/fleet"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/sim"
)

// Result summarises a replayed scenario.
type Result struct {
	Ticks     int
	Failures  int
	Delivered int
	Queued    int
	InFlight  int
}

// Check compares r against the expected counts.
func (r Result) Check(e Expected) error {
	var errs []error
	if r.Delivered != e.Delivered {
		errs = append(errs, fmt.Errorf("expected %d delivered, got %d", e.Delivered, r.Delivered))
	}
	if r.Queued != e.Queued {
		errs = append(errs, fmt.Errorf("expected %d queued, got %d", e.Queued, r.Queued))
	}
	if r.InFlight != e.InFlight {
		errs = append(errs, fmt.Errorf("expected %d in flight, got %d", e.InFlight, r.InFlight))
	}
	return errors.Join(errs...)
}

// Run replays sc tick by tick. Requests and commands scheduled for a tick are
// applied before that tick's step.
func Run(sc *Scenario, log logger.Logger) (Result, error) {
	agents := make([]model.Agent, len(sc.Drones))
	for i, d := range sc.Drones {
		agents[i] = d.ToModel()
	}
	reg, err := fleet.New(agents...)
	if err != nil {
		return Result{}, err
	}
	cfg := sim.DefaultConfig()
	cfg.Seed = sc.Seed
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	s, err := sim.New(cfg, sim.Deps{Fleet: reg, Logger: log})
	if err != nil {
		return Result{}, err
	}
	defer s.Close()

	var res Result
	start := time.Unix(0, 0)
	for tick := 0; tick < sc.Ticks; tick++ {
		for _, r := range sc.Requests {
			if r.AtTick != tick {
				continue
			}
			who := model.Requester{Name: r.Name, Phone: r.Phone}
			if _, err := s.SubmitRequest(who, &geo.Point{Lat: r.Lat, Lng: r.Lng}, r.Supplies); err != nil {
				return res, fmt.Errorf("tick %d: request %q: %w", tick, r.Name, err)
			}
		}
		for _, c := range sc.Commands {
			if c.AtTick != tick {
				continue
			}
			if _, err := s.CommandAgent(c.Drone, c.ToModel()); err != nil {
				return res, fmt.Errorf("tick %d: command %s to %s: %w", tick, c.Type, c.Drone, err)
			}
		}
		stats := s.Step(start.Add(time.Duration(tick) * cfg.TickInterval()))
		res.Ticks++
		res.Failures += stats.Failures
	}

	for _, r := range s.ListRequests() {
		switch {
		case r.Status == model.RequestDelivered:
			res.Delivered++
		case r.Status == model.RequestQueued:
			res.Queued++
		case r.InFlight():
			res.InFlight++
		}
	}
	return res, nil
}
