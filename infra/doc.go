// Package infra contains technical adapters: the zerolog logger, the
// Prometheus and InfluxDB sinks, the MQTT bridge and the Sentry monitor.
// These packages depend only on interfaces defined in the core packages.
package infra
