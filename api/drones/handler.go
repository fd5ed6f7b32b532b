// Package drones exposes the fleet over HTTP.
package drones

import (
	"fmt"
	"net/http"

	"github.com/kilianp07/dronedispatch/api/respond"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

// Fleet is the part of the simulation the handlers use.
type Fleet interface {
	ListAgents() []model.Agent
	GetAgent(id string) (model.Agent, error)
	CommandAgent(id string, cmd model.Command) (model.Agent, error)
}

// commandBody accepts either a nested position or flat lat/lng fields.
type commandBody struct {
	Type     model.CommandType `json:"type"`
	Position *geo.Point        `json:"position"`
	Lat      *float64          `json:"lat"`
	Lng      *float64          `json:"lng"`
}

func (b commandBody) command() model.Command {
	cmd := model.Command{Type: b.Type, Position: b.Position}
	if cmd.Position == nil && b.Lat != nil && b.Lng != nil {
		cmd.Position = &geo.Point{Lat: *b.Lat, Lng: *b.Lng}
	}
	return cmd
}

// NewListHandler serves GET /api/drones.
func NewListHandler(f Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		respond.JSON(w, http.StatusOK, f.ListAgents())
	})
}

// NewGetHandler serves GET /api/drones/{id}.
func NewGetHandler(f Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := f.GetAgent(r.PathValue("id"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, a)
	})
}

// NewCommandHandler serves POST /api/drones/{id}/command with a body such as
// {"type":"goto","lat":28.7,"lng":77.1} or {"type":"return"}.
func NewCommandHandler(f Fleet) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.PathValue("id")
		if id == "" {
			respond.Error(w, fmt.Errorf("missing drone id: %w", model.ErrInvalidInput))
			return
		}
		var body commandBody
		if err := respond.Decode(r, &body); err != nil {
			respond.Error(w, err)
			return
		}
		a, err := f.CommandAgent(id, body.command())
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, a)
	})
}
