// Package events defines the topics published on the event bus and the
// payload carried by each.
//
// Topics:
//   - fleet-update: FleetUpdate, after every tick, dispatch and command
//   - map-update: MapUpdate, after every tick
//   - new-request: NewRequest, once per submitted or re-dispatched request
//   - request-update: RequestUpdate, when a request is delivered or released
package events
