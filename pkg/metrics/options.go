package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace replaces the "perfboard" metric name prefix.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "api" subsystem segment of metric names.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets shared by the HTTP,
// upload and repository latency histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithBatchBuckets sets the buckets of the files-per-batch histogram.
func WithBatchBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.batchBuckets = buckets
		}
	}
}

// WithConstLabels adds labels such as a deployment name to every series.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = prometheus.Labels(labels)
		}
	}
}

// WithPrometheusRegistry registers the collectors on registry instead of
// the default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
