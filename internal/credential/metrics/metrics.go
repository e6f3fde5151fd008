package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential module.
type Metrics struct {
	CredentialsUpserted   *prometheus.CounterVec
	ExpiringQueryDuration prometheus.Histogram
}

// New creates a Metrics instance with all credential module metrics registered.
func New() *Metrics {
	return &Metrics{
		CredentialsUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentialwatch_credentials_upserted_total",
			Help: "Total credential writes by outcome (created, updated)",
		}, []string{"outcome"}),
		ExpiringQueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credentialwatch_expiring_query_duration_seconds",
			Help:    "Duration of expiring-credential scans",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordUpsert records a credential write and its outcome.
func (m *Metrics) RecordUpsert(outcome string) {
	m.CredentialsUpserted.WithLabelValues(outcome).Inc()
}

// ObserveExpiringQuery records the duration of an expiring-credential scan.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveExpiringQuery(start time.Time) {
	m.ExpiringQueryDuration.Observe(time.Since(start).Seconds())
}
