package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/geo"
	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordTick(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	err := sink.RecordTick(coremetrics.TickStats{Tick: 7, Agents: 4, Deliveries: 1, Duration: 2 * time.Millisecond, Time: now})
	require.NoError(t, err)

	p := write.NewPointWithMeasurement("sim_tick").
		AddTag("component", "clock").
		AddField("tick", int64(7)).
		AddField("drones", 4).
		AddField("failures", 0).
		AddField("deliveries", 1).
		AddField("duration_ms", 2.0).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.all())
}

func TestInfluxSink_RecordDelivery(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	require.NoError(t, sink.RecordDelivery(coremetrics.DeliveryEvent{RequestID: "r1", AgentID: "drone-1", Latency: 1500 * time.Millisecond, Time: now}))
	p := write.NewPointWithMeasurement("delivery").
		AddTag("request_id", "r1").
		AddTag("drone_id", "drone-1").
		AddField("latency_s", 1.5).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.all())
}

func TestInfluxSink_RecordFleetState(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	agents := []model.Agent{
		{ID: "drone-1", Position: geo.Point{Lat: 1, Lng: 2}, Battery: 88.5, Status: model.AgentIdle},
		{ID: "drone-2", Position: geo.Point{Lat: 3, Lng: 4}, Battery: 50, Status: model.AgentEnroute, Target: &model.Target{}},
	}
	require.NoError(t, sink.RecordFleetState(agents, now))
	require.NoError(t, sink.RecordFleetState(nil, now))

	bodies := rec.all()
	require.Len(t, bodies, 1)
	lines := strings.Split(bodies[0], "\n")
	require.Len(t, lines, 2)
	p := write.NewPointWithMeasurement("drone_state").
		AddTag("drone_id", "drone-2").
		AddTag("status", "enroute").
		AddField("lat", 3.0).
		AddField("lng", 4.0).
		AddField("battery", 50.0).
		AddField("has_target", true).
		SetTime(now)
	assert.Equal(t, line(p), strings.TrimSpace(lines[1]))
}

func TestInfluxSink_RecordAssignment(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	require.NoError(t, sink.RecordAssignment(coremetrics.AssignmentEvent{RequestID: "r2", Outcome: coremetrics.OutcomeQueued, Time: now}))
	p := write.NewPointWithMeasurement("dispatch_decision").
		AddTag("request_id", "r2").
		AddTag("outcome", "queued").
		AddTag("component", "dispatcher").
		AddField("distance", 0.0).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, rec.all())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
