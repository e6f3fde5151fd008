package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the alert lifecycle.
type Metrics struct {
	AlertsCreated      *prometheus.CounterVec
	AlertsDeduplicated prometheus.Counter
	AlertsResolved     prometheus.Counter
}

// New creates a Metrics instance with all alert module metrics registered.
func New() *Metrics {
	return &Metrics{
		AlertsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentialwatch_alerts_created_total",
			Help: "Total alerts created, by severity",
		}, []string{"severity"}),
		AlertsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentialwatch_alerts_deduplicated_total",
			Help: "Alert creations suppressed because an equivalent open alert exists",
		}),
		AlertsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentialwatch_alerts_resolved_total",
			Help: "Total alerts resolved",
		}),
	}
}

// RecordCreated counts a created alert.
func (m *Metrics) RecordCreated(severity string) {
	m.AlertsCreated.WithLabelValues(severity).Inc()
}

// RecordDeduplicated counts a suppressed duplicate creation.
func (m *Metrics) RecordDeduplicated() {
	m.AlertsDeduplicated.Inc()
}

// RecordResolved counts a resolved alert.
func (m *Metrics) RecordResolved() {
	m.AlertsResolved.Inc()
}
