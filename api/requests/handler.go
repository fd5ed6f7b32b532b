// Package requests exposes the request ledger over HTTP.
package requests

import (
	"net/http"

	"github.com/kilianp07/dronedispatch/api/respond"
	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

// Ledger is the part of the simulation the handlers use.
type Ledger interface {
	ListRequests() []model.Request
	GetRequest(id string) (model.Request, error)
	SubmitRequest(who model.Requester, pos *geo.Point, supplies []string) (model.Request, error)
	Redispatch(id string) (model.Request, error)
}

// SubmitBody is the JSON accepted by POST /api/requests.
type SubmitBody struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Supplies []string `json:"supplies"`
}

func (b SubmitBody) position() *geo.Point {
	if b.Lat == nil || b.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *b.Lat, Lng: *b.Lng}
}

// NewHandler serves GET and POST on /api/requests. A status query parameter
// filters the listing.
func NewHandler(l Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list := l.ListRequests()
			if st := r.URL.Query().Get("status"); st != "" {
				filtered := list[:0]
				for _, req := range list {
					if string(req.Status) == st {
						filtered = append(filtered, req)
					}
				}
				list = filtered
			}
			respond.JSON(w, http.StatusOK, list)
		case http.MethodPost:
			var body SubmitBody
			if err := respond.Decode(r, &body); err != nil {
				respond.Error(w, err)
				return
			}
			req, err := l.SubmitRequest(model.Requester{Name: body.Name, Phone: body.Phone}, body.position(), body.Supplies)
			if err != nil {
				respond.Error(w, err)
				return
			}
			respond.JSON(w, http.StatusCreated, req)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// NewGetHandler serves GET /api/requests/{id}.
func NewGetHandler(l Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := l.GetRequest(r.PathValue("id"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, req)
	})
}

// NewDispatchHandler serves POST /api/requests/{id}/dispatch, which retries
// the assignment of a queued request.
func NewDispatchHandler(l Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req, err := l.Redispatch(r.PathValue("id"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, req)
	})
}
