package mapdata

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

type fixedSource struct {
	points []model.MapPoint
	limit  int
}

func (f *fixedSource) ListRecentMapPoints(limit int) []model.MapPoint {
	f.limit = limit
	return f.points
}
func (f *fixedSource) ListAgents() []model.Agent     { return nil }
func (f *fixedSource) ListRequests() []model.Request { return nil }

func TestFeatureCollectionKinds(t *testing.T) {
	now := time.Now()
	agents := []model.Agent{{
		ID:       "drone-1",
		Position: geo.Point{Lat: 1, Lng: 2},
		Status:   model.AgentAssigned,
		Target:   &model.Target{Position: geo.Point{Lat: 3, Lng: 4}, RequestID: "r1"},
	}}
	reqs := []model.Request{{ID: "r1", Position: geo.Point{Lat: 3, Lng: 4}, Status: model.RequestAssigned}}
	fc := FeatureCollection([]model.MapPoint{{Position: geo.Point{Lat: 5, Lng: 6}, Timestamp: now}}, agents, reqs)

	require.Len(t, fc.Features, 4)
	kinds := []any{}
	for _, f := range fc.Features {
		kinds = append(kinds, f.Properties["kind"])
	}
	assert.Equal(t, []any{"scan", "drone", "route", "request"}, kinds)
	assert.Equal(t, orb.Point{6, 5}, fc.Features[0].Geometry)
	assert.Equal(t, orb.LineString{{2, 1}, {4, 3}}, fc.Features[2].Geometry)
	assert.Equal(t, "r1", fc.Features[2].Properties["request_id"])
}

func TestPointsHandlerLimit(t *testing.T) {
	src := &fixedSource{}
	h := NewPointsHandler(src)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/map", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, DefaultLimit, src.limit)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/map?limit=0", nil))
	assert.Equal(t, 0, src.limit)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/map", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
