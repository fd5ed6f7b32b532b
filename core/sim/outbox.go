package sim

import (
	"context"
	"time"

	"github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
)

// outbox stands in for the metrics sink and the journal while the world
// lock is held. Writes are queued and run by the caller once the lock has
// been released. It is only touched under Simulation.mu.
type outbox struct {
	sink    metrics.MetricsSink
	store   journal.Store
	log     logger.Logger
	pending []func()
}

func newOutbox(sink metrics.MetricsSink, store journal.Store, log logger.Logger) *outbox {
	return &outbox{sink: sink, store: store, log: log}
}

func (o *outbox) push(write func()) { o.pending = append(o.pending, write) }

// take hands over the queued writes in submission order.
func (o *outbox) take() []func() {
	p := o.pending
	o.pending = nil
	return p
}

func (o *outbox) RecordTick(stats metrics.TickStats) error {
	o.push(func() {
		if err := o.sink.RecordTick(stats); err != nil {
			o.log.Errorf("tick metrics error: %v", err)
		}
	})
	return nil
}

func (o *outbox) RecordFleetState(agents []model.Agent, at time.Time) error {
	rec, ok := o.sink.(metrics.FleetStateRecorder)
	if !ok {
		return nil
	}
	o.push(func() {
		if err := rec.RecordFleetState(agents, at); err != nil {
			o.log.Errorf("fleet state metrics error: %v", err)
		}
	})
	return nil
}

func (o *outbox) RecordAssignment(ev metrics.AssignmentEvent) error {
	rec, ok := o.sink.(metrics.AssignmentRecorder)
	if !ok {
		return nil
	}
	o.push(func() {
		if err := rec.RecordAssignment(ev); err != nil {
			o.log.Errorf("assignment metrics error: %v", err)
		}
	})
	return nil
}

func (o *outbox) RecordDelivery(ev metrics.DeliveryEvent) error {
	rec, ok := o.sink.(metrics.DeliveryRecorder)
	if !ok {
		return nil
	}
	o.push(func() {
		if err := rec.RecordDelivery(ev); err != nil {
			o.log.Errorf("delivery metrics error: %v", err)
		}
	})
	return nil
}

func (o *outbox) Append(_ context.Context, e journal.Entry) error {
	o.push(func() {
		if err := o.store.Append(context.Background(), e); err != nil {
			o.log.Errorf("journal append: %v", err)
		}
	})
	return nil
}

func (o *outbox) Query(ctx context.Context, q journal.Query) ([]journal.Entry, error) {
	return o.store.Query(ctx, q)
}

// Close is a no-op; the Simulation owns the underlying store.
func (o *outbox) Close() error { return nil }
