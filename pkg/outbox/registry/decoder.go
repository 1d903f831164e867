package registry

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders turns Pub/Sub message data back into typed payloads on the worker
// side. The table is fixed at construction, so lookups need no locking.
type Decoders struct {
	table    map[decoderKey]func() any
	validate *validator.Validate
}

func decoder[T any]() func() any {
	return func() any { return new(T) }
}

// NewConsumerDecoders knows the v1 payloads the worker handles.
func NewConsumerDecoders() *Decoders {
	return &Decoders{
		table: map[decoderKey]func() any{
			{enums.EventOrderCreated, 1}:           decoder[payloads.OrderCreatedEvent](),
			{enums.EventOrderPaid, 1}:              decoder[payloads.OrderPaidEvent](),
			{enums.EventObjectiveStatusChanged, 1}: decoder[payloads.ObjectiveStatusChangedEvent](),
			{enums.EventNotificationRequested, 1}:  decoder[payloads.NotificationRequestedEvent](),
			{enums.EventOrderReadyForApproval, 1}:  decoder[payloads.NotificationRequestedEvent](),
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Decode returns a pointer to the payload registered for the type and
// version. Payloads that decode but fail validation are rejected as well, with
// the same NonRetryableError the publisher uses.
func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	newPayload, ok := d.table[decoderKey{eventType, version}]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no decoder for %s@v%d", eventType, version))
	}
	payload := newPayload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s@v%d: %w", eventType, version, err))
	}
	if err := d.validate.Struct(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s@v%d: %w", eventType, version, err))
	}
	return payload, nil
}
