package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/fleet"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/ledger"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/monitoring"
	"github.com/kilianp07/dronedispatch/core/trace"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Clock advances every drone by one step per tick.
type Clock struct {
	cfg     Config
	fleet   *fleet.Registry
	ledger  *ledger.Ledger
	trace   *trace.Buffer
	bus     eventbus.EventBus
	log     logger.Logger
	metrics metrics.MetricsSink
	journal journal.Store
	rng     *rand.Rand
	ticks   uint64

	// inspect runs before each drone update; a returned error or panic
	// aborts that drone's step only.
	inspect func(*model.Agent) error
}

// agentOutcome describes the ledger side effects of one drone step.
type agentOutcome struct {
	startedRequest   string
	deliveredRequest string
	agentID          string
	position         geo.Point
}

// NewClock wires a clock over the given stores. bus may be nil.
func NewClock(cfg Config, reg *fleet.Registry, led *ledger.Ledger, buf *trace.Buffer, bus eventbus.EventBus, log logger.Logger, rng *rand.Rand) *Clock {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Clock{
		cfg:     cfg,
		fleet:   reg,
		ledger:  led,
		trace:   buf,
		bus:     bus,
		log:     log,
		metrics: metrics.NopSink{},
		journal: journal.NopStore{},
		rng:     rng,
	}
}

// SetMetrics configures the sink receiving tick statistics.
func (c *Clock) SetMetrics(sink metrics.MetricsSink) {
	if sink != nil {
		c.metrics = sink
	}
}

// SetJournal configures the store receiving deliveries.
func (c *Clock) SetJournal(store journal.Store) {
	if store != nil {
		c.journal = store
	}
}

// Ticks returns the number of completed steps.
func (c *Clock) Ticks() uint64 { return c.ticks }

// Step runs one tick at the given wall time. A failure on one drone is
// logged and does not prevent the others from being processed.
func (c *Clock) Step(now time.Time) metrics.TickStats {
	start := time.Now()
	c.ticks++
	stats := metrics.TickStats{Tick: c.ticks, Time: now}
	for _, id := range c.fleet.IDs() {
		stats.Agents++
		out, err := c.stepAgent(id, now)
		if err != nil {
			stats.Failures++
			c.log.Errorf("tick %d: drone %s: %v", c.ticks, id, err)
			monitoring.CaptureException(err, map[string]string{"drone_id": id, "tick": strconv.FormatUint(c.ticks, 10)})
			continue
		}
		if c.reconcile(out, now) {
			stats.Deliveries++
		}
	}

	agents := c.fleet.List()
	if c.bus != nil {
		c.bus.Publish(events.TopicFleetUpdate, events.FleetUpdate{Agents: agents})
		c.bus.Publish(events.TopicMapUpdate, events.MapUpdate{Points: c.trace.Recent(c.cfg.BroadcastPoints)})
	}
	stats.Duration = time.Since(start)
	if err := c.metrics.RecordTick(stats); err != nil {
		c.log.Errorf("tick metrics error: %v", err)
	}
	if rec, ok := c.metrics.(metrics.FleetStateRecorder); ok {
		if err := rec.RecordFleetState(agents, now); err != nil {
			c.log.Errorf("fleet state metrics error: %v", err)
		}
	}
	return stats
}

// Run steps the clock every tick interval until ctx is done.
func (c *Clock) Run(ctx context.Context, step func(time.Time)) {
	if step == nil {
		step = func(t time.Time) { c.Step(t) }
	}
	ticker := time.NewTicker(c.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			step(t)
		}
	}
}

func (c *Clock) stepAgent(id string, now time.Time) (out agentOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out.agentID = id
	_, err = c.fleet.Mutate(id, func(a *model.Agent) error {
		if c.inspect != nil {
			if err := c.inspect(a); err != nil {
				return err
			}
		}
		a.Battery = math.Max(c.cfg.BatteryFloor, a.Battery-c.cfg.BatteryDrain)
		c.trace.Append(model.MapPoint{Position: geo.Jitter(a.Position, c.cfg.ScanJitter, c.rng), Timestamp: now})

		switch {
		case a.Target != nil:
			next, arrived := geo.StepToward(a.Position, a.Target.Position, c.cfg.StepLength)
			a.Position = next
			wasAssigned := a.Status == model.AgentAssigned
			a.Status = model.AgentEnroute
			if arrived {
				out.deliveredRequest = a.Target.RequestID
				out.position = a.Target.Position
				a.ClearTarget()
			} else if wasAssigned {
				out.startedRequest = a.Target.RequestID
			}
		case a.Status == model.AgentReturning:
			next, home := geo.StepToward(a.Position, a.Home, c.cfg.StepLength)
			a.Position = next
			if home {
				a.Status = model.AgentIdle
			}
		default:
			a.Position = geo.Jitter(a.Position, c.cfg.WanderJitter, c.rng)
			a.Status = model.AgentIdle
		}
		a.UpdatedAt = now
		return nil
	})
	return out, err
}

// reconcile applies ledger changes for a drone step and reports whether a
// delivery was completed.
func (c *Clock) reconcile(out agentOutcome, now time.Time) bool {
	if out.startedRequest != "" {
		if _, err := c.ledger.MarkEnroute(out.startedRequest, out.agentID); err != nil && !errors.Is(err, model.ErrNotFound) {
			c.log.Warnf("mark enroute: %v", err)
		}
	}
	if out.deliveredRequest == "" {
		return false
	}
	prev, err := c.ledger.Get(out.deliveredRequest)
	if err != nil {
		c.log.Warnf("drone %s arrived for unknown request %s", out.agentID, out.deliveredRequest)
		return false
	}
	req, err := c.ledger.MarkDelivered(out.deliveredRequest, out.agentID, now)
	if err != nil {
		c.log.Warnf("ignoring delivery: %v", err)
		return false
	}
	if prev.Status == model.RequestDelivered {
		return false
	}
	c.log.Infof("request %s delivered by %s", req.ID, out.agentID)
	if rec, ok := c.metrics.(metrics.DeliveryRecorder); ok {
		ev := metrics.DeliveryEvent{RequestID: req.ID, AgentID: out.agentID, Latency: now.Sub(req.CreatedAt), Time: now}
		if err := rec.RecordDelivery(ev); err != nil {
			c.log.Errorf("delivery metrics error: %v", err)
		}
	}
	entry := journal.Entry{Timestamp: now, Kind: journal.KindDelivered, RequestID: req.ID, AgentID: out.agentID, Position: out.position}
	if err := c.journal.Append(context.Background(), entry); err != nil {
		c.log.Errorf("journal append: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(events.TopicRequestUpdate, events.RequestUpdate{Request: req})
	}
	return true
}
