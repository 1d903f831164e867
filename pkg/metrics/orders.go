package metrics

import "github.com/prometheus/client_golang/prometheus"

// ObjectiveMetrics counts committed objective state transitions.
type ObjectiveMetrics struct {
	transitions *prometheus.CounterVec
}

func NewObjectiveMetrics(reg prometheus.Registerer) *ObjectiveMetrics {
	if reg == nil {
		return &ObjectiveMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_objective_transitions_total",
		Help: "Committed order objective transitions by trigger and destination status.",
	}, []string{"trigger", "status"})
	reg.MustRegister(transitions)
	return &ObjectiveMetrics{transitions: transitions}
}

// IncTransition is safe to call on a nil receiver.
func (m *ObjectiveMetrics) IncTransition(trigger, status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(trigger), normalizeLabel(status)).Inc()
}
