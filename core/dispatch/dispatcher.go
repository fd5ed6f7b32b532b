package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/fleet"
	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/ledger"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

var errTaken = errors.New("drone no longer eligible")

// Dispatcher matches requests to the nearest eligible idle drone.
// Queued requests are only reconsidered when Assign is called again for them.
type Dispatcher struct {
	fleet      *fleet.Registry
	ledger     *ledger.Ledger
	bus        eventbus.EventBus
	log        logger.Logger
	metrics    metrics.MetricsSink
	journal    journal.Store
	minBattery float64
	now        func() time.Time
}

// New creates a dispatcher. bus and log may be nil.
func New(reg *fleet.Registry, led *ledger.Ledger, bus eventbus.EventBus, log logger.Logger, cfg Config) (*Dispatcher, error) {
	if reg == nil || led == nil {
		return nil, fmt.Errorf("dispatch: nil registry or ledger")
	}
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Dispatcher{
		fleet:      reg,
		ledger:     led,
		bus:        bus,
		log:        log,
		metrics:    metrics.NopSink{},
		journal:    journal.NopStore{},
		minBattery: cfg.MinBattery,
		now:        time.Now,
	}, nil
}

// SetMetrics configures the sink receiving assignment outcomes.
func (d *Dispatcher) SetMetrics(sink metrics.MetricsSink) {
	if sink != nil {
		d.metrics = sink
	}
}

// SetJournal configures the store receiving dispatch decisions.
func (d *Dispatcher) SetJournal(store journal.Store) {
	if store != nil {
		d.journal = store
	}
}

// MinBattery returns the eligibility threshold in percent.
func (d *Dispatcher) MinBattery() float64 { return d.minBattery }

// Assign runs the nearest-first policy for req. It returns the drone that
// took the request, or nil when the request was queued. Only pending or
// queued requests can be assigned.
func (d *Dispatcher) Assign(req model.Request) (*model.Agent, error) {
	cur, err := d.ledger.Get(req.ID)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.RequestPending && cur.Status != model.RequestQueued {
		return nil, fmt.Errorf("request %s is %s: %w", cur.ID, cur.Status, model.ErrInvalidTransition)
	}

	agent, dist, ok := d.claim(cur)
	now := d.now()
	if !ok {
		queued, err := d.ledger.MarkQueued(cur.ID)
		if err != nil {
			return nil, err
		}
		d.log.Infof("no eligible drone for request %s, queued", cur.ID)
		d.record(metrics.AssignmentEvent{RequestID: cur.ID, Outcome: metrics.OutcomeQueued, Time: now},
			journal.Entry{Timestamp: now, Kind: journal.KindQueued, RequestID: cur.ID, Position: cur.Position})
		d.announce(queued)
		return nil, nil
	}

	assigned, err := d.ledger.MarkAssigned(cur.ID, agent.ID)
	if err != nil {
		d.rollback(agent.ID)
		return nil, err
	}
	d.log.Infof("request %s assigned to %s (distance %.5f)", cur.ID, agent.ID, dist)
	d.record(metrics.AssignmentEvent{RequestID: cur.ID, AgentID: agent.ID, Outcome: metrics.OutcomeAssigned, Distance: dist, Time: now},
		journal.Entry{Timestamp: now, Kind: journal.KindAssigned, RequestID: cur.ID, AgentID: agent.ID, Position: cur.Position})
	d.announce(assigned)
	return &agent, nil
}

// claim selects the nearest eligible drone and atomically points it at the
// request. A drone claimed concurrently by someone else is skipped and the
// scan repeated.
func (d *Dispatcher) claim(req model.Request) (model.Agent, float64, bool) {
	for attempt := 0; attempt <= d.fleet.Len(); attempt++ {
		best, dist, ok := Nearest(d.fleet.List(), req.Position, d.minBattery)
		if !ok {
			return model.Agent{}, 0, false
		}
		updated, err := d.fleet.Mutate(best.ID, func(a *model.Agent) error {
			if !a.Eligible(d.minBattery) {
				return errTaken
			}
			a.SetTarget(model.Target{Position: req.Position, RequestID: req.ID})
			a.UpdatedAt = d.now()
			return nil
		})
		if err == nil {
			return updated, dist, true
		}
		d.log.Debugf("drone %s lost during claim: %v", best.ID, err)
	}
	return model.Agent{}, 0, false
}

func (d *Dispatcher) rollback(agentID string) {
	_, err := d.fleet.Mutate(agentID, func(a *model.Agent) error {
		a.Target = nil
		a.Status = model.AgentIdle
		return nil
	})
	if err != nil {
		d.log.Errorf("rollback of %s failed: %v", agentID, err)
	}
}

func (d *Dispatcher) record(ev metrics.AssignmentEvent, entry journal.Entry) {
	if rec, ok := d.metrics.(metrics.AssignmentRecorder); ok {
		if err := rec.RecordAssignment(ev); err != nil {
			d.log.Errorf("assignment metrics error: %v", err)
		}
	}
	if err := d.journal.Append(context.Background(), entry); err != nil {
		d.log.Errorf("journal append: %v", err)
	}
}

func (d *Dispatcher) announce(req model.Request) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(events.TopicFleetUpdate, events.FleetUpdate{Agents: d.fleet.List()})
	d.bus.Publish(events.TopicNewRequest, events.NewRequest{Request: req})
}
