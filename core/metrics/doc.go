// Package metrics defines the observability sinks fed by the simulation.
// A MetricsSink records tick statistics; sinks may additionally implement
// the optional recorder interfaces for dispatch decisions, deliveries and
// fleet snapshots. Sinks are built from configuration through a factory
// registry and combined with NewMultiSink when several are configured.
package metrics
