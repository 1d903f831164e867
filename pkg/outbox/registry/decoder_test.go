package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

func TestDecodeNotification(t *testing.T) {
	clientID := uuid.New()
	raw, err := json.Marshal(payloads.NotificationRequestedEvent{Kind: enums.NotificationOrderPaused, ClientID: clientID})
	require.NoError(t, err)

	out, err := NewConsumerDecoders().Decode(enums.EventNotificationRequested, 1, raw)
	require.NoError(t, err)
	evt, ok := out.(*payloads.NotificationRequestedEvent)
	require.True(t, ok, "payload type %T", out)
	assert.Equal(t, clientID, evt.ClientID)
	assert.Equal(t, enums.NotificationOrderPaused, evt.Kind)
}

func TestDecodeStatusChange(t *testing.T) {
	raw, err := json.Marshal(payloads.ObjectiveStatusChangedEvent{
		ObjectiveID: uuid.New(),
		OrderID:     uuid.New(),
		From:        enums.ObjectiveStatusInProgress,
		To:          enums.ObjectiveStatusPendingApproval,
	})
	require.NoError(t, err)

	out, err := NewConsumerDecoders().Decode(enums.EventObjectiveStatusChanged, 1, raw)
	require.NoError(t, err)
	assert.Equal(t, enums.ObjectiveStatusPendingApproval, out.(*payloads.ObjectiveStatusChangedEvent).To)
}

func TestDecodeRejects(t *testing.T) {
	decoders := NewConsumerDecoders()

	_, err := decoders.Decode(enums.EventObjectiveStatusChanged, 2, json.RawMessage(`{}`))
	assert.True(t, IsNonRetryable(err), "unknown version: %v", err)

	_, err = decoders.Decode(enums.EventOrderPaid, 1, json.RawMessage(`{"order_id":`))
	assert.True(t, IsNonRetryable(err), "truncated json: %v", err)

	_, err = decoders.Decode(enums.EventOrderPaid, 1, json.RawMessage(`{"order_id":"`+uuid.NewString()+`"}`))
	assert.True(t, IsNonRetryable(err), "missing client id: %v", err)
}
