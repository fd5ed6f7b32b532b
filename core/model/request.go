package model

import (
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// RequestStatus tracks a delivery request from submission to delivery.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAssigned  RequestStatus = "assigned"
	RequestQueued    RequestStatus = "queued"
	RequestEnroute   RequestStatus = "enroute"
	RequestDelivered RequestStatus = "delivered"
)

// Requester identifies who asked for supplies. Both fields are opaque.
type Requester struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Request is a supply delivery task.
type Request struct {
	ID              string        `json:"id"`
	Requester       Requester     `json:"requester"`
	Position        geo.Point     `json:"position"`
	Supplies        []string      `json:"supplies"`
	Status          RequestStatus `json:"status"`
	AssignedAgentID string        `json:"assigned_agent_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	DeliveredBy     string        `json:"delivered_by,omitempty"`
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	if r.Supplies != nil {
		r.Supplies = append(make([]string, 0, len(r.Supplies)), r.Supplies...)
	}
	if r.DeliveredAt != nil {
		t := *r.DeliveredAt
		r.DeliveredAt = &t
	}
	return r
}

// InFlight reports whether a drone is currently linked to the request.
func (r Request) InFlight() bool {
	return r.Status == RequestAssigned || r.Status == RequestEnroute
}

// Consistent checks that delivery metadata is present iff delivered.
func (r Request) Consistent() bool {
	delivered := r.Status == RequestDelivered
	return delivered == (r.DeliveredAt != nil && r.DeliveredBy != "")
}
