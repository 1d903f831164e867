package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

// ConsumerName scopes the notification worker's idempotency claims.
const ConsumerName = "notifications-worker"

type deliverer interface {
	Deliver(ctx context.Context, eventID uuid.UUID, req payloads.NotificationRequestedEvent) (int64, error)
}

// EventHandler writes requested notifications into recipient inboxes.
type EventHandler struct {
	service deliverer
}

func NewEventHandler(service deliverer) (*EventHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &EventHandler{service: service}, nil
}

// Events includes order_ready_for_approval, which carries the same payload as
// notification_requested.
func (h *EventHandler) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{enums.EventNotificationRequested, enums.EventOrderReadyForApproval}
}

func (h *EventHandler) Handle(ctx context.Context, eventID uuid.UUID, payload any) error {
	req, ok := payload.(*payloads.NotificationRequestedEvent)
	if !ok {
		return fmt.Errorf("notifications: unexpected payload %T", payload)
	}
	_, err := h.service.Deliver(ctx, eventID, *req)
	return err
}
