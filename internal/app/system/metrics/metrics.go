package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics provides observability for moderation decisions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Decisions by entity (claim, review), action and outcome
	Decisions *prometheus.CounterVec

	// Items per mass action
	BatchItems prometheus.Histogram

	// Wall time of a whole mass action
	BatchDuration prometheus.Histogram
}

// New registers the moderation metrics with reg (the default registry when
// nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "directoryhub_moderation_decisions_total",
			Help: "Moderation decisions by entity, action and outcome",
		}, []string{"entity", "action", "outcome"}),

		BatchItems: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "directoryhub_moderation_batch_items",
			Help:    "Number of items requested per mass action",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "directoryhub_moderation_batch_duration_seconds",
			Help:    "Duration of a mass action",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// Decision records one single-item decision.
func (m *Metrics) Decision(entity, action string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.Decisions.WithLabelValues(entity, action, outcome).Inc()
}

// ObserveBatch records the size and duration of a mass action.
func (m *Metrics) ObserveBatch(items int, d time.Duration) {
	if m != nil {
		m.BatchItems.Observe(float64(items))
		m.BatchDuration.Observe(d.Seconds())
	}
}
