package metrics

import (
	"time"

	"github.com/kilianp07/dronedispatch/core/model"
)

// TickStats summarises one simulation step.
type TickStats struct {
	Tick       uint64
	Duration   time.Duration
	Agents     int
	Failures   int
	Deliveries int
	Time       time.Time
}

// MetricsSink records simulation activity for observability purposes.
type MetricsSink interface {
	RecordTick(stats TickStats) error
}

// Assignment outcomes.
const (
	OutcomeAssigned = "assigned"
	OutcomeQueued   = "queued"
)

// AssignmentEvent captures one dispatch decision.
type AssignmentEvent struct {
	RequestID string
	AgentID   string
	Outcome   string
	// Distance is the planar distance from the chosen drone to the request.
	Distance float64
	Time     time.Time
}

// AssignmentRecorder records dispatch decisions.
type AssignmentRecorder interface {
	RecordAssignment(ev AssignmentEvent) error
}

// DeliveryEvent captures a completed delivery.
type DeliveryEvent struct {
	RequestID string
	AgentID   string
	// Latency is the time between submission and delivery.
	Latency time.Duration
	Time    time.Time
}

// DeliveryRecorder records completed deliveries.
type DeliveryRecorder interface {
	RecordDelivery(ev DeliveryEvent) error
}

// FleetStateRecorder records a snapshot of every drone after a tick.
type FleetStateRecorder interface {
	RecordFleetState(agents []model.Agent, at time.Time) error
}

// RequestEvent captures a request lifecycle change seen on the event bus.
type RequestEvent struct {
	RequestID string
	Status    model.RequestStatus
	Time      time.Time
}

// RequestRecorder records request lifecycle changes.
type RequestRecorder interface {
	RecordRequest(ev RequestEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickStats) error                     { return nil }
func (NopSink) RecordAssignment(AssignmentEvent) error         { return nil }
func (NopSink) RecordDelivery(DeliveryEvent) error             { return nil }
func (NopSink) RecordFleetState([]model.Agent, time.Time) error { return nil }
func (NopSink) RecordRequest(RequestEvent) error               { return nil }
