package model

import (
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// AgentStatus is the lifecycle state of a drone.
type AgentStatus string

const (
	AgentIdle      AgentStatus = "idle"
	AgentAssigned  AgentStatus = "assigned"
	AgentEnroute   AgentStatus = "enroute"
	AgentReturning AgentStatus = "returning"
)

// Target is the destination a drone is flying to. RequestID is empty when the
// target was set by a goto command rather than a delivery assignment.
type Target struct {
	Position  geo.Point `json:"position"`
	RequestID string    `json:"request_id,omitempty"`
}

// Agent is a simulated drone. Home is the spawn position it flies back to
// after a delivery.
type Agent struct {
	ID        string      `json:"id"`
	Position  geo.Point   `json:"position"`
	Home      geo.Point   `json:"home"`
	Battery   float64     `json:"battery"`
	Status    AgentStatus `json:"status"`
	Target    *Target     `json:"target,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Clone returns a copy that shares no pointers with a.
func (a Agent) Clone() Agent {
	if a.Target != nil {
		t := *a.Target
		a.Target = &t
	}
	return a
}

// Moving reports whether the drone has a target, which is the case exactly
// when it is assigned or en route.
func (a Agent) Moving() bool {
	return a.Status == AgentAssigned || a.Status == AgentEnroute
}

// Consistent checks that the target is set iff the status is assigned or
// enroute.
func (a Agent) Consistent() bool {
	return a.Moving() == (a.Target != nil)
}

// Eligible reports whether the drone can take a new delivery.
func (a Agent) Eligible(minBattery float64) bool {
	return a.Status == AgentIdle && a.Target == nil && a.Battery > minBattery
}

// SetTarget points the drone at t. A request-linked target marks the drone as
// assigned, a free target as enroute.
func (a *Agent) SetTarget(t Target) {
	a.Target = &t
	if t.RequestID != "" {
		a.Status = AgentAssigned
	} else {
		a.Status = AgentEnroute
	}
}

// ClearTarget drops the target and marks the drone as returning.
func (a *Agent) ClearTarget() {
	a.Target = nil
	a.Status = AgentReturning
}
