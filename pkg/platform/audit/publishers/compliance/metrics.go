package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance audit persistence. A nil *Metrics is a no-op.
type Metrics struct {
	eventsEmitted   prometheus.Counter
	persistFailures prometheus.Counter
	persistDuration prometheus.Histogram
}

// NewMetrics registers the compliance audit collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrust_audit_compliance_events_total",
			Help: "Compliance audit events persisted",
		}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrust_audit_compliance_failures_total",
			Help: "Compliance audit events that failed to persist",
		}),
		persistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fintrust_audit_compliance_persist_seconds",
			Help:    "Time to persist a compliance audit event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEventsEmitted() {
	if m == nil {
		return
	}
	m.eventsEmitted.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(seconds)
}
