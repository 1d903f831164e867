package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConsumerMetricsLabelsUnknownEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsumerMetrics(reg)

	m.Observe("orders-worker", "order_created", MessageHandled)
	m.Observe("orders-worker", "order_created", MessageHandled)
	m.Observe("orders-worker", "", MessageRejected)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	handled, err := sample(mfs, "consumer_messages_total", map[string]string{"event_type": "order_created", "outcome": MessageHandled})
	if err != nil {
		t.Fatalf("handled series: %v", err)
	}
	if got := handled.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 handled, got %v", got)
	}
	if _, err := sample(mfs, "consumer_messages_total", map[string]string{"event_type": "unknown", "outcome": MessageRejected}); err != nil {
		t.Fatalf("rejected series: %v", err)
	}

	var nilMetrics *ConsumerMetrics
	nilMetrics.Observe("x", "y", MessageRetried)
}
