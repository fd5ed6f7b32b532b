package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/dronedispatch/core/model"
)

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards to all sinks and joins their errors.
func (m *MultiSink) RecordTick(st TickStats) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTick(st))
	}
	return errors.Join(errs...)
}

// RecordAssignment forwards to sinks implementing AssignmentRecorder.
func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			errs = append(errs, rec.RecordAssignment(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordDelivery forwards to sinks implementing DeliveryRecorder.
func (m *MultiSink) RecordDelivery(ev DeliveryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DeliveryRecorder); ok {
			errs = append(errs, rec.RecordDelivery(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordFleetState forwards to sinks implementing FleetStateRecorder.
func (m *MultiSink) RecordFleetState(agents []model.Agent, at time.Time) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetStateRecorder); ok {
			errs = append(errs, rec.RecordFleetState(agents, at))
		}
	}
	return errors.Join(errs...)
}

// RecordRequest forwards to sinks implementing RequestRecorder.
func (m *MultiSink) RecordRequest(ev RequestEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RequestRecorder); ok {
			errs = append(errs, rec.RecordRequest(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a client.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
