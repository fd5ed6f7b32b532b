package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/events"
	"github.com/kilianp07/dronedispatch/core/fleet"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/ledger"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

type assignSink struct {
	mu     sync.Mutex
	events []metrics.AssignmentEvent
}

func (s *assignSink) RecordTick(metrics.TickStats) error { return nil }
func (s *assignSink) RecordAssignment(ev metrics.AssignmentEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func idle(id string, lat, lng, battery float64) model.Agent {
	return model.Agent{ID: id, Position: geo.Point{Lat: lat, Lng: lng}, Battery: battery, Status: model.AgentIdle}
}

func setup(t *testing.T, agents ...model.Agent) (*Dispatcher, *fleet.Registry, *ledger.Ledger, *eventbus.Bus) {
	t.Helper()
	reg, err := fleet.New(agents...)
	require.NoError(t, err)
	led := ledger.New()
	bus := eventbus.NewWithBuffer(64)
	d, err := New(reg, led, bus, logger.NopLogger{}, Config{})
	require.NoError(t, err)
	return d, reg, led, bus
}

func submit(t *testing.T, led *ledger.Ledger, lat, lng float64) model.Request {
	t.Helper()
	r, err := led.Create(model.Requester{Name: "test"}, &geo.Point{Lat: lat, Lng: lng}, []string{"water"})
	require.NoError(t, err)
	return r
}

func TestNearestPicksClosest(t *testing.T) {
	agents := []model.Agent{idle("far", 1, 1, 90), idle("near", 0, 0, 90)}
	best, dist, ok := Nearest(agents, geo.Point{Lat: 0, Lng: 0.01}, 20)
	require.True(t, ok)
	assert.Equal(t, "near", best.ID)
	assert.InDelta(t, 0.01, dist, 1e-12)
}

func TestNearestTieFirstWins(t *testing.T) {
	agents := []model.Agent{idle("a", 0, 1, 90), idle("b", 0, -1, 90)}
	best, _, ok := Nearest(agents, geo.Point{}, 20)
	require.True(t, ok)
	assert.Equal(t, "a", best.ID)
}

func TestNearestSkipsIneligible(t *testing.T) {
	busy := idle("busy", 0, 0, 90)
	busy.SetTarget(model.Target{Position: geo.Point{Lat: 5}, RequestID: "x"})
	low := idle("low", 0, 0, 20)
	back := idle("back", 0, 0, 90)
	back.Status = model.AgentReturning
	_, _, ok := Nearest([]model.Agent{busy, low, back}, geo.Point{}, 20)
	assert.False(t, ok)
}

func TestAssignEndToEnd(t *testing.T) {
	d, reg, led, bus := setup(t, idle("drone-1", 0, 0, 100), idle("drone-2", 1, 1, 100))
	sink := &assignSink{}
	d.SetMetrics(sink)
	store := journal.NewMemoryStore(10)
	d.SetJournal(store)
	sub := bus.Subscribe()

	req := submit(t, led, 0, 0.01)
	agent, err := d.Assign(req)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, "drone-1", agent.ID)
	assert.Equal(t, model.AgentAssigned, agent.Status)
	require.NotNil(t, agent.Target)
	assert.Equal(t, req.ID, agent.Target.RequestID)
	assert.Equal(t, req.Position, agent.Target.Position)

	stored, _ := led.Get(req.ID)
	assert.Equal(t, model.RequestAssigned, stored.Status)
	assert.Equal(t, "drone-1", stored.AssignedAgentID)

	other, _ := reg.Get("drone-2")
	assert.Equal(t, model.AgentIdle, other.Status)

	first, second := <-sub, <-sub
	assert.Equal(t, events.TopicFleetUpdate, first.Topic)
	assert.Equal(t, events.TopicNewRequest, second.Topic)
	assert.Equal(t, model.RequestAssigned, second.Payload.(events.NewRequest).Request.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, metrics.OutcomeAssigned, sink.events[0].Outcome)
	assert.InDelta(t, 0.01, sink.events[0].Distance, 1e-12)

	entries, err := store.Query(context.Background(), journal.Query{RequestID: req.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.KindAssigned, entries[0].Kind)
}

func TestAssignQueuesWhenNoneEligible(t *testing.T) {
	busy := idle("busy", 0, 0, 90)
	busy.SetTarget(model.Target{Position: geo.Point{Lat: 1}, RequestID: "other"})
	d, _, led, _ := setup(t, busy, idle("low", 0, 0, 20), idle("empty", 0, 0, 5))

	req := submit(t, led, 0, 0)
	agent, err := d.Assign(req)
	require.NoError(t, err)
	assert.Nil(t, agent)

	stored, _ := led.Get(req.ID)
	assert.Equal(t, model.RequestQueued, stored.Status)
	assert.Empty(t, stored.AssignedAgentID)
}

func TestAssignRejectsInFlightRequest(t *testing.T) {
	d, _, led, _ := setup(t, idle("drone-1", 0, 0, 90), idle("drone-2", 0, 0, 90))
	req := submit(t, led, 0, 0)
	_, err := d.Assign(req)
	require.NoError(t, err)
	_, err = d.Assign(req)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAssignQueuedRequestAgain(t *testing.T) {
	d, reg, led, _ := setup(t, idle("drone-1", 0, 0, 10))
	req := submit(t, led, 0, 0)
	agent, err := d.Assign(req)
	require.NoError(t, err)
	require.Nil(t, agent)

	_, err = reg.Mutate("drone-1", func(a *model.Agent) error { a.Battery = 90; return nil })
	require.NoError(t, err)

	agent, err = d.Assign(req)
	require.NoError(t, err)
	require.NotNil(t, agent)
	stored, _ := led.Get(req.ID)
	assert.Equal(t, model.RequestAssigned, stored.Status)
}

func TestAssignConcurrentNoDoubleBooking(t *testing.T) {
	d, reg, led, _ := setup(t,
		idle("drone-1", 0, 0, 90),
		idle("drone-2", 0.01, 0.01, 90),
		idle("drone-3", 0, 0, 15),
		idle("drone-4", 0, 0, 19),
	)
	reqs := make([]model.Request, 6)
	for i := range reqs {
		reqs[i] = submit(t, led, 0.001*float64(i), 0)
	}
	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func(r model.Request) {
			defer wg.Done()
			_, err := d.Assign(r)
			assert.NoError(t, err)
		}(r)
	}
	wg.Wait()

	counts := map[model.RequestStatus]int{}
	owners := map[string]string{}
	for _, r := range led.List() {
		counts[r.Status]++
		if r.Status == model.RequestAssigned {
			prev, dup := owners[r.AssignedAgentID]
			assert.False(t, dup, "drone %s assigned to %s and %s", r.AssignedAgentID, prev, r.ID)
			owners[r.AssignedAgentID] = r.ID
		}
	}
	assert.Equal(t, 2, counts[model.RequestAssigned])
	assert.Equal(t, 4, counts[model.RequestQueued])
	for id, reqID := range owners {
		a, _ := reg.Get(id)
		require.NotNil(t, a.Target)
		assert.Equal(t, reqID, a.Target.RequestID)
	}
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(nil, ledger.New(), nil, nil, Config{})
	assert.Error(t, err)
}
