// Package metrics exposes scoring counters and latencies.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	outcomes         *prometheus.CounterVec
	scoringDuration  prometheus.Histogram
	inferenceLatency *prometheus.HistogramVec
	queueRejections  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrust_scoring_outcomes_total",
			Help: "Terminal scoring outcomes by outcome and risk tier",
		}, []string{"outcome", "tier"}),
		scoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fintrust_scoring_duration_seconds",
			Help:    "End-to-end time to score one application",
			Buckets: prometheus.DefBuckets,
		}),
		inferenceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fintrust_inference_duration_seconds",
			Help:    "Classifier call latency by result",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"result"}),
		queueRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrust_scoring_enqueue_failures_total",
			Help: "Scoring jobs that could not be enqueued",
		}),
	}
}

func (m *Metrics) IncOutcome(outcome, tier string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome, tier).Inc()
}

func (m *Metrics) ObserveScoring(d time.Duration) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(d.Seconds())
}

// ObserveInference records one classifier call; ok is false when it failed.
func (m *Metrics) ObserveInference(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.inferenceLatency.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) IncEnqueueFailure() {
	if m == nil {
		return
	}
	m.queueRejections.Inc()
}
