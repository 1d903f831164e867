package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic:       "orders-topic",
		NotificationTopic: "notification-topic",
	})
	require.NoError(t, err)
	return reg
}

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func orderCreatedRow(t *testing.T, payload any) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateClientOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeOf(t, payload),
	}
}

func TestResolveRoutesOrderCreated(t *testing.T) {
	reg := newTestEventRegistry(t)
	objectiveID := uuid.New()

	resolved, err := reg.Resolve(orderCreatedRow(t, payloads.OrderCreatedEvent{
		OrderID:      uuid.New(),
		ClientID:     uuid.New(),
		ObjectiveIDs: []uuid.UUID{objectiveID},
	}))
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, []uuid.UUID{objectiveID}, payload.ObjectiveIDs)
}

func TestResolveRoutesReadyForApprovalToNotifications(t *testing.T) {
	reg := newTestEventRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderReadyForApproval,
		AggregateType: enums.AggregateClientOrder,
		AggregateID:   orderID,
		Payload: envelopeOf(t, payloads.NotificationRequestedEvent{
			Kind:     enums.NotificationOrderReadyForApproval,
			ClientID: uuid.New(),
			OrderID:  &orderID,
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "notification-topic", resolved.Descriptor.Topic)
	assert.IsType(t, &payloads.NotificationRequestedEvent{}, resolved.Payload)
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	valid := payloads.OrderCreatedEvent{OrderID: uuid.New(), ClientID: uuid.New(), ObjectiveIDs: []uuid.UUID{uuid.New()}}

	unknown := orderCreatedRow(t, valid)
	unknown.EventType = "order_teleported"

	wrongAggregate := orderCreatedRow(t, valid)
	wrongAggregate.AggregateType = enums.AggregateNotification

	noAggregate := orderCreatedRow(t, valid)
	noAggregate.AggregateID = uuid.Nil

	garbage := orderCreatedRow(t, valid)
	garbage.Payload = json.RawMessage(`{"version":`)

	cases := map[string]models.OutboxEvent{
		"unknown type":      unknown,
		"aggregate":         wrongAggregate,
		"missing aggregate": noAggregate,
		"garbage envelope":  garbage,
		"null payload":      orderCreatedRow(t, nil),
		"no objectives":     orderCreatedRow(t, payloads.OrderCreatedEvent{OrderID: uuid.New(), ClientID: uuid.New()}),
		"no client":         orderCreatedRow(t, payloads.OrderCreatedEvent{OrderID: uuid.New(), ObjectiveIDs: []uuid.UUID{uuid.New()}}),
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err), "expected non-retryable, got %v", err)
		})
	}
}

func TestNewEventRegistryNeedsTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	assert.Error(t, err)

	reg := newTestEventRegistry(t)
	assert.Equal(t, []string{"notification-topic", "orders-topic"}, reg.Topics())
}
