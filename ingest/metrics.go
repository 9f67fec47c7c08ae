package ingest

import "github.com/prometheus/client_golang/prometheus"

// namespace is the leading part of every metric published by the
// ingestion registry.
const namespace = "ingestd"

// registrySubsystem groups the metrics tracking registry-wide state.
const registrySubsystem = "registry"

// Metrics are the prometheus collectors tracking registry activity.
type Metrics struct {
	SeriesRegistered prometheus.Counter
	SessionsOpen     prometheus.Gauge
	SyncCompleted    prometheus.Counter
}

// NewMetrics initializes the registry's prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SeriesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: registrySubsystem,
			Name:      "series_registered_total",
			Help:      "Number of distinct series names registered since start.",
		}),
		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: registrySubsystem,
			Name:      "sessions_open",
			Help:      "Number of currently open ingestion sessions.",
		}),
		SyncCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: registrySubsystem,
			Name:      "metadata_syncs_total",
			Help:      "Number of successful syncs to the metadata store.",
		}),
	}
}

// PrometheusCollectors satisfies the common pack convention of exposing a
// collector list for registration with a prometheus.Registerer.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.SeriesRegistered, m.SessionsOpen, m.SyncCompleted}
}
