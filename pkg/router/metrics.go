package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an Observer that counts outcomes and records handle latency.
type Metrics struct {
	outcomes *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewMetrics creates the router metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uns_gateway_messages_total",
			Help: "Legacy messages handled, by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uns_gateway_handle_duration_seconds",
			Help:    "Time from receipt of a legacy message to the end of its dispatch.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
	for _, c := range []prometheus.Collector{m.outcomes, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Every outcome series exists from startup, at zero.
	for k := OutcomeTransformed; k <= OutcomePublishError; k++ {
		m.outcomes.WithLabelValues(k.String())
	}
	return m, nil
}

// Observe implements Observer.
func (m *Metrics) Observe(o Outcome) {
	m.outcomes.WithLabelValues(o.Kind.String()).Inc()
	m.latency.Observe(o.Duration.Seconds())
}

// Count returns the counter for one outcome kind.
func (m *Metrics) Count(k OutcomeKind) prometheus.Counter {
	return m.outcomes.WithLabelValues(k.String())
}
