// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mhpenta/imageedit"
)

// Collector records session transitions and outcomes.
type Collector struct {
	transitions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	duration    prometheus.Histogram
	stale       prometheus.Counter
}

var _ imageedit.SessionObserver = (*Collector)(nil)

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageedit_session_transitions_total",
				Help: "Session state transitions",
			},
			[]string{"from", "to"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageedit_outcomes_total",
				Help: "Classified edit outcomes that were applied to a session",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imageedit_edit_duration_seconds",
				Help:    "Time from submitting an edit to receiving its outcome",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		),
		stale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "imageedit_stale_responses_total",
				Help: "Outcomes discarded because the session was reset or given a new image",
			},
		),
	}
	reg.MustRegister(c.transitions, c.outcomes, c.duration, c.stale)
	return c
}

func (c *Collector) StateChanged(from, to imageedit.State) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (c *Collector) OutcomeReceived(outcome imageedit.Outcome, elapsed time.Duration, stale bool) {
	c.duration.Observe(elapsed.Seconds())
	if stale {
		c.stale.Inc()
		return
	}
	c.outcomes.WithLabelValues(outcome.Variant()).Inc()
}
