package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/idempotency"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

type memoryStore struct {
	keys map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) DeleteIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.keys[key] != owner {
		return false, nil
	}
	delete(m.keys, key)
	return true, nil
}

type recordingHandler struct {
	payloads []any
	err      error
	ignore   bool
}

func (h *recordingHandler) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{enums.EventNotificationRequested}
}

func (h *recordingHandler) Handle(_ context.Context, _ uuid.UUID, payload any) error {
	h.payloads = append(h.payloads, payload)
	return h.err
}

func (h *recordingHandler) Ignore(any) bool { return h.ignore }

func newTestConsumer(t *testing.T, h Handler, m *metrics.ConsumerMetrics) *Consumer {
	t.Helper()
	guard, err := idempotency.NewGuard(&memoryStore{keys: map[string]string{}}, time.Hour)
	require.NoError(t, err)
	c, err := New(Params{Name: "test-worker", Handler: h, Guard: guard, Metrics: m, Logger: logger.Nop()})
	require.NoError(t, err)
	return c
}

func message(t *testing.T, eventType enums.OutboxEventType, eventID string, payload any) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now().UTC(), Data: data})
	require.NoError(t, err)
	return &pubsub.Message{ID: "msg-1", Data: body, Attributes: map[string]string{"event_type": string(eventType)}}
}

func notification() payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{Kind: enums.NotificationOrderPaused, ClientID: uuid.New()}
}

func TestProcessHandlesEachEventOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := &recordingHandler{}
	c := newTestConsumer(t, h, metrics.NewConsumerMetrics(reg))
	msg := message(t, enums.EventNotificationRequested, uuid.NewString(), notification())

	assert.Equal(t, Ack, c.Process(context.Background(), msg))
	assert.Equal(t, Ack, c.Process(context.Background(), msg))
	require.Len(t, h.payloads, 1)
	assert.IsType(t, &payloads.NotificationRequestedEvent{}, h.payloads[0])

	outcomes := map[string]float64{}
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					outcomes[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{metrics.MessageHandled: 1, metrics.MessageDuplicate: 1}, outcomes)
}

func TestProcessReleasesClaimWhenHandlerFails(t *testing.T) {
	h := &recordingHandler{err: errors.New("db down")}
	c := newTestConsumer(t, h, nil)
	msg := message(t, enums.EventNotificationRequested, uuid.NewString(), notification())

	assert.Equal(t, Nack, c.Process(context.Background(), msg))
	h.err = nil
	assert.Equal(t, Ack, c.Process(context.Background(), msg))
	assert.Len(t, h.payloads, 2)
}

func TestProcessAcksWhatItCannotUse(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(t, h, nil)
	ctx := context.Background()

	invalid := payloads.NotificationRequestedEvent{Kind: enums.NotificationOrderPaused}
	garbage := &pubsub.Message{Data: []byte("{"), Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)}}
	cases := map[string]*pubsub.Message{
		"foreign event type": message(t, enums.EventOrderPaid, uuid.NewString(), notification()),
		"invalid event id":   message(t, enums.EventNotificationRequested, "not-a-uuid", notification()),
		"invalid payload":    message(t, enums.EventNotificationRequested, uuid.NewString(), invalid),
		"not an envelope":    garbage,
	}
	for name, msg := range cases {
		assert.Equal(t, Ack, c.Process(ctx, msg), name)
	}
	assert.Empty(t, h.payloads)
}

func TestProcessSkipsIgnoredPayloadsWithoutClaiming(t *testing.T) {
	h := &recordingHandler{ignore: true}
	c := newTestConsumer(t, h, nil)
	msg := message(t, enums.EventNotificationRequested, uuid.NewString(), notification())

	assert.Equal(t, Ack, c.Process(context.Background(), msg))
	h.ignore = false
	assert.Equal(t, Ack, c.Process(context.Background(), msg))
	assert.Len(t, h.payloads, 1)
}

func TestRunWithoutSubscription(t *testing.T) {
	c := newTestConsumer(t, &recordingHandler{}, nil)
	assert.Error(t, c.Run(context.Background()))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Params{Name: "x", Logger: logger.Nop()})
	assert.ErrorContains(t, err, "handler required")
}
