package metrics

import "github.com/prometheus/client_golang/prometheus"

// Consumer message outcomes.
const (
	MessageHandled   = "handled"
	MessageSkipped   = "skipped"
	MessageDuplicate = "duplicate"
	MessageRejected  = "rejected"
	MessageRetried   = "retried"
)

// ConsumerMetrics counts Pub/Sub deliveries per consumer. A rising "rejected"
// series means poison messages are being acked away.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	m := &ConsumerMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consumer_messages_total",
			Help: "Messages received by consumer, event type and outcome.",
		}, []string{"consumer", "event_type", "outcome"}),
	}
	reg.MustRegister(m.messages)
	return m
}

func (m *ConsumerMetrics) Observe(consumer, eventType, outcome string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType), outcome).Inc()
}
