// Package mapdata serves the scan trace and a GeoJSON view of the world.
package mapdata

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kilianp07/dronedispatch/api/respond"
	"github.com/kilianp07/dronedispatch/core/model"
)

// DefaultLimit is the number of map points returned without a limit
// parameter.
const DefaultLimit = 500

// Source is the part of the simulation the handlers read.
type Source interface {
	ListRecentMapPoints(limit int) []model.MapPoint
	ListAgents() []model.Agent
	ListRequests() []model.Request
}

func limitParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer: %w", model.ErrInvalidInput)
	}
	return n, nil
}

// NewPointsHandler serves GET /api/map: the most recent scan samples, oldest
// first. limit=0 returns the whole buffer.
func NewPointsHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, src.ListRecentMapPoints(limit))
	})
}

// NewGeoJSONHandler serves GET /api/map.geojson: a FeatureCollection with one
// feature per scan sample, drone and request, told apart by the "kind"
// property.
func NewGeoJSONHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			respond.Error(w, err)
			return
		}
		fc := FeatureCollection(src.ListRecentMapPoints(limit), src.ListAgents(), src.ListRequests())
		data, err := fc.MarshalJSON()
		if err != nil {
			respond.Error(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	})
}

// FeatureCollection builds the GeoJSON view.
func FeatureCollection(points []model.MapPoint, agents []model.Agent, reqs []model.Request) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewFeature(p.Position.Orb())
		f.Properties["kind"] = "scan"
		f.Properties["t"] = p.Timestamp
		fc.Append(f)
	}
	for _, a := range agents {
		f := geojson.NewFeature(a.Position.Orb())
		f.ID = a.ID
		f.Properties["kind"] = "drone"
		f.Properties["status"] = string(a.Status)
		f.Properties["battery"] = a.Battery
		fc.Append(f)
		if a.Target != nil {
			leg := geojson.NewFeature(orb.LineString{a.Position.Orb(), a.Target.Position.Orb()})
			leg.Properties["kind"] = "route"
			leg.Properties["drone_id"] = a.ID
			if a.Target.RequestID != "" {
				leg.Properties["request_id"] = a.Target.RequestID
			}
			fc.Append(leg)
		}
	}
	for _, q := range reqs {
		f := geojson.NewFeature(q.Position.Orb())
		f.ID = q.ID
		f.Properties["kind"] = "request"
		f.Properties["status"] = string(q.Status)
		f.Properties["requester"] = q.Requester.Name
		f.Properties["supplies"] = q.Supplies
		fc.Append(f)
	}
	return fc
}
