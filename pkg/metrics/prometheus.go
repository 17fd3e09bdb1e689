package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	ProviderCalls    *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	CostUSD          *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	BuildDuration    prometheus.Histogram
	ErrorsCount      *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "The total number of provider calls by kind, provider and outcome",
		}, []string{"kind", "provider", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_seconds",
			Help:      "Time taken by provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "provider"}),
		CostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Estimated spend in USD by category",
		}, []string{"category"}),
		PhaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "The total number of trips entering each phase",
		}, []string{"phase"}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trip_build_seconds",
			Help:      "Time taken to build trip options",
			Buckets:   []float64{5, 15, 30, 60, 120, 240, 480},
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

// ObserveProviderCall records one provider attempt. Safe on a nil receiver.
func (m *Metrics) ObserveProviderCall(kind, provider string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ProviderCalls.WithLabelValues(kind, provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(kind, provider).Observe(elapsed.Seconds())
}

// AddCost records spend. Safe on a nil receiver.
func (m *Metrics) AddCost(category string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.CostUSD.WithLabelValues(category).Add(usd)
}

// ObservePhase counts a phase transition. Safe on a nil receiver.
func (m *Metrics) ObservePhase(phase string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(phase).Inc()
}

// ObserveBuild records the duration of a Phase 2 build. Safe on a nil receiver.
func (m *Metrics) ObserveBuild(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(elapsed.Seconds())
}

// IncError counts an error for the operation. Safe on a nil receiver.
func (m *Metrics) IncError(operation string) {
	if m == nil {
		return
	}
	m.ErrorsCount.WithLabelValues(operation).Inc()
}
