package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/infra/logger"
)

// InfluxSink writes simulation telemetry to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordTick writes one point per tick.
func (s *InfluxSink) RecordTick(st coremetrics.TickStats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sim_tick").
		AddTag("component", "clock").
		AddField("tick", int64(st.Tick)).
		AddField("drones", st.Agents).
		AddField("failures", st.Failures).
		AddField("deliveries", st.Deliveries).
		AddField("duration_ms", round3(st.Duration.Seconds()*1000)).
		SetTime(st.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment writes a dispatch decision.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_decision").
		AddTag("request_id", ev.RequestID).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "dispatcher")
	if ev.AgentID != "" {
		p = p.AddTag("drone_id", ev.AgentID)
	}
	p = p.AddField("distance", round6(ev.Distance)).SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDelivery writes a completed delivery.
func (s *InfluxSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("delivery").
		AddTag("request_id", ev.RequestID).
		AddTag("drone_id", ev.AgentID).
		AddField("latency_s", round3(ev.Latency.Seconds())).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFleetState writes one telemetry point per drone.
func (s *InfluxSink) RecordFleetState(agents []model.Agent, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(agents))
	for _, a := range agents {
		p := write.NewPointWithMeasurement("drone_state").
			AddTag("drone_id", a.ID).
			AddTag("status", string(a.Status)).
			AddField("lat", a.Position.Lat).
			AddField("lng", a.Position.Lng).
			AddField("battery", round3(a.Battery)).
			AddField("has_target", a.Target != nil).
			SetTime(at)
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRequest writes a request transition.
func (s *InfluxSink) RecordRequest(ev coremetrics.RequestEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("request_transition").
		AddTag("request_id", ev.RequestID).
		AddTag("status", string(ev.Status)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
