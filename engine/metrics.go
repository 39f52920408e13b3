package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the edit and award counters.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeNotFound    = "not_found"
	outcomePersistence = "persistence_error"
	outcomeIllegal     = "illegal_transition"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	lineItemEdits *prometheus.CounterVec
	guardDenials  prometheus.Counter
	evaluations   *prometheus.CounterVec
	awards        *prometheus.CounterVec
	awardDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		lineItemEdits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender",
			Name:      "line_item_edits_total",
			Help:      "Line item edits by outcome.",
		}, []string{"outcome"}),
		guardDenials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tender",
			Name:      "edit_guard_denials_total",
			Help:      "Edit attempts refused by the mutability guard.",
		}),
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender",
			Name:      "evaluations_total",
			Help:      "Bid evaluations recorded, by outcome.",
		}, []string{"outcome"}),
		awards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tender",
			Name:      "awards_total",
			Help:      "Award attempts by outcome.",
		}, []string{"outcome"}),
		awardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tender",
			Name:      "award_duration_seconds",
			Help:      "Time taken to apply an award transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) lineItemEdit(outcome string) {
	if m == nil {
		return
	}
	m.lineItemEdits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) guardDenied() {
	if m == nil {
		return
	}
	m.guardDenials.Inc()
}

func (m *Metrics) evaluation(outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) award(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.awards.WithLabelValues(outcome).Inc()
	m.awardDuration.Observe(elapsed.Seconds())
}
