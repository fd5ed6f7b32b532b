package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
)

// PromSink records simulation activity in Prometheus metrics.
type PromSink struct {
	tickDuration    prometheus.Histogram
	tickFailures    prometheus.Counter
	assignments     *prometheus.CounterVec
	distance        prometheus.Histogram
	deliveries      *prometheus.CounterVec
	deliveryLatency prometheus.Histogram
	dronesByStatus  *prometheus.GaugeVec
	battery         *prometheus.GaugeVec
	requests        *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.tickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dronedispatch_tick_duration_seconds",
		Help:    "Wall time spent processing one simulation tick",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})); err != nil {
		return nil, err
	}
	if s.tickFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dronedispatch_tick_failures_total",
		Help: "Drone updates that failed during a tick",
	})); err != nil {
		return nil, err
	}
	if s.assignments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dronedispatch_assignments_total",
		Help: "Dispatch decisions by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dronedispatch_assignment_distance_degrees",
		Help:    "Planar distance between the chosen drone and the request",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 8),
	})); err != nil {
		return nil, err
	}
	if s.deliveries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dronedispatch_deliveries_total",
		Help: "Completed deliveries by drone",
	}, []string{"drone_id"})); err != nil {
		return nil, err
	}
	if s.deliveryLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dronedispatch_delivery_latency_seconds",
		Help:    "Time between request submission and delivery",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})); err != nil {
		return nil, err
	}
	if s.dronesByStatus, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dronedispatch_drones",
		Help: "Drones per status after the last tick",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.battery, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dronedispatch_drone_battery_percent",
		Help: "Battery level per drone",
	}, []string{"drone_id"})); err != nil {
		return nil, err
	}
	if s.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dronedispatch_request_transitions_total",
		Help: "Request lifecycle changes by resulting status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick observes the tick duration and failure count.
func (s *PromSink) RecordTick(st coremetrics.TickStats) error {
	s.tickDuration.Observe(st.Duration.Seconds())
	if st.Failures > 0 {
		s.tickFailures.Add(float64(st.Failures))
	}
	return nil
}

// RecordAssignment counts the decision outcome.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(ev.Outcome).Inc()
	if ev.Outcome == coremetrics.OutcomeAssigned {
		s.distance.Observe(ev.Distance)
	}
	return nil
}

// RecordDelivery counts a delivery and its latency.
func (s *PromSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	s.deliveries.WithLabelValues(ev.AgentID).Inc()
	s.deliveryLatency.Observe(ev.Latency.Seconds())
	return nil
}

// RecordFleetState sets the status and battery gauges.
func (s *PromSink) RecordFleetState(agents []model.Agent, _ time.Time) error {
	counts := map[model.AgentStatus]int{
		model.AgentIdle:      0,
		model.AgentAssigned:  0,
		model.AgentEnroute:   0,
		model.AgentReturning: 0,
	}
	for _, a := range agents {
		counts[a.Status]++
		s.battery.WithLabelValues(a.ID).Set(a.Battery)
	}
	for st, n := range counts {
		s.dronesByStatus.WithLabelValues(string(st)).Set(float64(n))
	}
	return nil
}

// RecordRequest counts a request transition.
func (s *PromSink) RecordRequest(ev coremetrics.RequestEvent) error {
	s.requests.WithLabelValues(string(ev.Status)).Inc()
	return nil
}
