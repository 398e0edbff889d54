// Package metrics exposes runtime counters and gauges to Prometheus.
//
// Collectors are registered with promauto on the registry given by
// WithRegistry, so tests can use a fresh prometheus.NewRegistry per case.
package metrics
