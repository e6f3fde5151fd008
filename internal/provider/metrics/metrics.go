package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for provider sync.
type Metrics struct {
	ProvidersSynced  *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
	RegistryFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all provider module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProvidersSynced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentialwatch_providers_synced_total",
			Help: "Total provider sync operations by outcome (created, updated)",
		}, []string{"outcome"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credentialwatch_provider_sync_duration_seconds",
			Help:    "Duration of provider sync operations including the registry round trip",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RegistryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentialwatch_registry_lookup_failures_total",
			Help: "Registry lookup failures by kind (not_found, unavailable)",
		}, []string{"kind"}),
	}
}

// RecordSync records a completed sync and its outcome.
func (m *Metrics) RecordSync(outcome string, start time.Time) {
	m.ProvidersSynced.WithLabelValues(outcome).Inc()
	m.SyncDuration.Observe(time.Since(start).Seconds())
}

// RecordRegistryFailure counts a failed registry lookup.
func (m *Metrics) RecordRegistryFailure(kind string) {
	m.RegistryFailures.WithLabelValues(kind).Inc()
}
