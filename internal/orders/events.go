package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

// ConsumerName scopes the orders worker's idempotency claims.
const ConsumerName = "orders-worker"

type pendingApprovalHandler interface {
	HandlePendingApproval(ctx context.Context, objectiveID uuid.UUID) error
}

type orderCreatedBroadcaster interface {
	OrderCreatedNotifications(ctx context.Context, orderID uuid.UUID) error
}

// EventHandler broadcasts new orders and runs the order-level approval check
// when an objective reaches PENDING_APPROVAL.
type EventHandler struct {
	approvals   pendingApprovalHandler
	broadcaster orderCreatedBroadcaster
}

func NewEventHandler(approvals pendingApprovalHandler, broadcaster orderCreatedBroadcaster) (*EventHandler, error) {
	if approvals == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("order broadcaster required")
	}
	return &EventHandler{approvals: approvals, broadcaster: broadcaster}, nil
}

func (h *EventHandler) Events() []enums.OutboxEventType {
	return []enums.OutboxEventType{enums.EventOrderCreated, enums.EventObjectiveStatusChanged}
}

// Ignore drops status changes other than PENDING_APPROVAL.
func (h *EventHandler) Ignore(payload any) bool {
	changed, ok := payload.(*payloads.ObjectiveStatusChangedEvent)
	return ok && changed.To != enums.ObjectiveStatusPendingApproval
}

func (h *EventHandler) Handle(ctx context.Context, _ uuid.UUID, payload any) error {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return h.broadcaster.OrderCreatedNotifications(ctx, p.OrderID)
	case *payloads.ObjectiveStatusChangedEvent:
		return h.approvals.HandlePendingApproval(ctx, p.ObjectiveID)
	default:
		return fmt.Errorf("orders: unexpected payload %T", payload)
	}
}
