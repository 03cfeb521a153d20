package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fintrust/internal/consent/models"
)

// Metrics counts ledger activity. A nil *Metrics is a no-op.
type Metrics struct {
	checks      *prometheus.CounterVec
	grants      *prometheus.CounterVec
	revocations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrust_consent_checks_total",
			Help: "Consent validity checks by purpose and outcome",
		}, []string{"purpose", "valid"}),
		grants: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrust_consent_grants_total",
			Help: "Consent decisions recorded by purpose",
		}, []string{"purpose", "agreed"}),
		revocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrust_consent_revocations_total",
			Help: "Consent revocations by purpose",
		}, []string{"purpose"}),
	}
}

func (m *Metrics) IncCheck(purpose models.Purpose, valid bool) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(string(purpose), strconv.FormatBool(valid)).Inc()
}

func (m *Metrics) IncGrant(purpose models.Purpose, agreed bool) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(string(purpose), strconv.FormatBool(agreed)).Inc()
}

func (m *Metrics) IncRevocation(purpose models.Purpose) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(string(purpose)).Inc()
}
