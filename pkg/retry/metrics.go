package retry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts write attempts. Counters are labelled by operation
// ("create" or "create_all").
type Metrics struct {
	Attempts  *prometheus.CounterVec
	Conflicts *prometheus.CounterVec
	Exhausted *prometheus.CounterVec
}

// NewMetrics creates the counters without registering them.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_attempts_total",
				Help:      "Total number of conditional write attempts",
			},
			[]string{"operation"},
		),
		Conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_conflicts_total",
				Help:      "Total number of conditional writes rejected by a conflict",
			},
			[]string{"operation"},
		),
		Exhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_exhausted_total",
				Help:      "Total number of writes that gave up after the last attempt",
			},
			[]string{"operation"},
		),
	}
}

// Register adds every counter to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Attempts, m.Conflicts, m.Exhausted} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) attempt(op string) {
	if m != nil {
		m.Attempts.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) conflict(op string) {
	if m != nil {
		m.Conflicts.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) exhausted(op string) {
	if m != nil {
		m.Exhausted.WithLabelValues(op).Inc()
	}
}
