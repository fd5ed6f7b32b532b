// Package sim runs the drone world: a clock that advances every drone once
// per tick and the Simulation facade that external interfaces call.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/fleet"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/ledger"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/trace"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Deps carries optional collaborators. Zero fields get defaults: a seeded
// fleet, a fresh bus, no-op logger, metrics and journal.
type Deps struct {
	Fleet    *fleet.Registry
	Bus      eventbus.EventBus
	Logger   logger.Logger
	Metrics  metrics.MetricsSink
	Journal  journal.Store
	Rand     *rand.Rand
	Dispatch dispatch.Config
}

// Snapshot is the full state sent to a client when it connects.
type Snapshot struct {
	Agents   []model.Agent    `json:"drones"`
	Requests []model.Request  `json:"requests"`
	Points   []model.MapPoint `json:"points"`
}

// Simulation owns the world state. A single mutex serialises a clock tick
// against a dispatch or an operator command.
type Simulation struct {
	mu         sync.Mutex
	cfg        Config
	fleet      *fleet.Registry
	ledger     *ledger.Ledger
	trace      *trace.Buffer
	bus        eventbus.EventBus
	dispatcher *dispatch.Dispatcher
	clock      *Clock
	journal    journal.Store
	out        *outbox
	log        logger.Logger
	now        func() time.Time
}

// New assembles a simulation from cfg and deps.
func New(cfg Config, deps Deps) (*Simulation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := deps.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	log := deps.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	reg := deps.Fleet
	if reg == nil {
		reg = fleet.Seed(fleet.SeedConfig{
			Count:      cfg.FleetSize,
			Center:     cfg.Center,
			Spread:     cfg.SpawnSpread,
			MinBattery: 80,
			MaxBattery: 100,
		}, rng)
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.New()
	}
	store := deps.Journal
	if store == nil {
		store = journal.NopStore{}
	}
	sink := deps.Metrics
	if sink == nil {
		sink = metrics.NopSink{}
	}

	led := ledger.New()
	buf := trace.New(cfg.TraceCapacity)
	d, err := dispatch.New(reg, led, bus, log, deps.Dispatch)
	if err != nil {
		return nil, err
	}
	out := newOutbox(sink, store, log)
	d.SetMetrics(out)
	d.SetJournal(out)
	clock := NewClock(cfg, reg, led, buf, bus, log, rng)
	clock.SetMetrics(out)
	clock.SetJournal(out)

	return &Simulation{
		cfg:        cfg,
		fleet:      reg,
		ledger:     led,
		trace:      buf,
		bus:        bus,
		dispatcher: d,
		clock:      clock,
		journal:    store,
		out:        out,
		log:        log,
		now:        time.Now,
	}, nil
}

// Config returns the effective configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Step runs one tick under the world lock. Metrics and journal writes of
// the tick happen after the lock is released.
func (s *Simulation) Step(now time.Time) (stats metrics.TickStats) {
	s.withLock(func() { stats = s.clock.Step(now) })
	return stats
}

// withLock runs fn under the world lock, then performs the writes fn queued
// on the outbox.
func (s *Simulation) withLock(fn func()) {
	pending := func() []func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
		return s.out.take()
	}()
	for _, write := range pending {
		write()
	}
}

// Run ticks until ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	s.log.Infof("simulation started: %d drones, tick %s", s.fleet.Len(), s.cfg.TickInterval())
	s.clock.Run(ctx, func(t time.Time) { s.Step(t) })
	s.log.Infof("simulation stopped after %d ticks", s.clock.Ticks())
	return nil
}

// SubmitRequest records a new request and immediately dispatches it. The
// returned request reflects the dispatch outcome.
func (s *Simulation) SubmitRequest(who model.Requester, pos *geo.Point, supplies []string) (req model.Request, err error) {
	s.withLock(func() { req, err = s.submit(who, pos, supplies) })
	return req, err
}

func (s *Simulation) submit(who model.Requester, pos *geo.Point, supplies []string) (model.Request, error) {
	req, err := s.ledger.Create(who, pos, supplies)
	if err != nil {
		return model.Request{}, err
	}
	if _, err := s.dispatcher.Assign(req); err != nil {
		return req, err
	}
	return s.ledger.Get(req.ID)
}

// Redispatch runs the assignment policy again for a queued request.
func (s *Simulation) Redispatch(requestID string) (req model.Request, err error) {
	s.withLock(func() { req, err = s.redispatch(requestID) })
	return req, err
}

func (s *Simulation) redispatch(requestID string) (model.Request, error) {
	req, err := s.ledger.Get(requestID)
	if err != nil {
		return model.Request{}, err
	}
	if req.Status != model.RequestQueued {
		return req, fmt.Errorf("request %s is %s: %w", req.ID, req.Status, model.ErrInvalidTransition)
	}
	if _, err := s.dispatcher.Assign(req); err != nil {
		return req, err
	}
	return s.ledger.Get(req.ID)
}

// ListAgents returns a snapshot of every drone in registry order.
func (s *Simulation) ListAgents() []model.Agent { return s.fleet.List() }

// GetAgent returns one drone.
func (s *Simulation) GetAgent(id string) (model.Agent, error) { return s.fleet.Get(id) }

// ListRequests returns every request in creation order.
func (s *Simulation) ListRequests() []model.Request { return s.ledger.List() }

// GetRequest returns one request.
func (s *Simulation) GetRequest(id string) (model.Request, error) { return s.ledger.Get(id) }

// ListRecentMapPoints returns up to limit points, oldest first. A
// non-positive limit returns the whole buffer.
func (s *Simulation) ListRecentMapPoints(limit int) []model.MapPoint {
	return s.trace.Recent(limit)
}

// CommandAgent applies an operator command. A drone pulled off a delivery
// releases the request back to queued.
func (s *Simulation) CommandAgent(id string, cmd model.Command) (agent model.Agent, err error) {
	s.withLock(func() { agent, err = s.command(id, cmd) })
	return agent, err
}

func (s *Simulation) command(id string, cmd model.Command) (model.Agent, error) {
	if _, err := s.fleet.Get(id); err != nil {
		return model.Agent{}, err
	}
	if err := cmd.Validate(); err != nil {
		return model.Agent{}, err
	}

	var released string
	now := s.now()
	agent, err := s.fleet.Mutate(id, func(a *model.Agent) error {
		if a.Target != nil {
			released = a.Target.RequestID
		}
		switch cmd.Type {
		case model.CommandReturn:
			a.ClearTarget()
		case model.CommandGoto:
			a.SetTarget(model.Target{Position: *cmd.Position})
		}
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Agent{}, err
	}
	s.log.Infof("drone %s commanded: %s", id, cmd.Type)

	entry := journal.Entry{Timestamp: now, Kind: journal.KindCommand, AgentID: id, Position: agent.Position, Detail: string(cmd.Type)}
	if cmd.Position != nil {
		entry.Position = *cmd.Position
	}
	s.appendJournal(entry)

	if released != "" {
		req, err := s.ledger.Release(released)
		if err != nil {
			s.log.Warnf("release %s: %v", released, err)
		} else {
			s.appendJournal(journal.Entry{Timestamp: now, Kind: journal.KindReleased, RequestID: req.ID, AgentID: id, Position: req.Position})
			s.bus.Publish(events.TopicRequestUpdate, events.RequestUpdate{Request: req})
		}
	}
	s.bus.Publish(events.TopicFleetUpdate, events.FleetUpdate{Agents: s.fleet.List()})
	return agent, nil
}

// Subscribe registers a listener on the given topics, or all of them when
// none are given.
func (s *Simulation) Subscribe(topics ...eventbus.Topic) <-chan eventbus.Event {
	if len(topics) == 0 {
		topics = events.Topics
	}
	return s.bus.Subscribe(topics...)
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *Simulation) Unsubscribe(ch <-chan eventbus.Event) { s.bus.Unsubscribe(ch) }

// Snapshot returns the current world state for initial replay.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Agents:   s.fleet.List(),
		Requests: s.ledger.List(),
		Points:   s.trace.Recent(s.cfg.BroadcastPoints),
	}
}

// Journal returns the decision journal.
func (s *Simulation) Journal() journal.Store { return s.journal }

// Close closes the bus and the journal.
func (s *Simulation) Close() error {
	s.bus.Close()
	return s.journal.Close()
}

func (s *Simulation) appendJournal(e journal.Entry) {
	_ = s.out.Append(context.Background(), e)
}
