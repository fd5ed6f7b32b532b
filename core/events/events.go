package events

import (
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

const (
	TopicFleetUpdate   eventbus.Topic = "fleet-update"
	TopicMapUpdate     eventbus.Topic = "map-update"
	TopicNewRequest    eventbus.Topic = "new-request"
	TopicRequestUpdate eventbus.Topic = "request-update"
)

// Topics lists every topic in publication order of a typical cycle.
var Topics = []eventbus.Topic{TopicFleetUpdate, TopicMapUpdate, TopicNewRequest, TopicRequestUpdate}

// FleetUpdate is a full snapshot of the fleet.
type FleetUpdate struct {
	Agents []model.Agent `json:"drones"`
}

// MapUpdate carries the most recent scan samples.
type MapUpdate struct {
	Points []model.MapPoint `json:"points"`
}

// NewRequest announces the outcome of a dispatch decision.
type NewRequest struct {
	Request model.Request `json:"request"`
}

// RequestUpdate announces a later status change of a request.
type RequestUpdate struct {
	Request model.Request `json:"request"`
}
