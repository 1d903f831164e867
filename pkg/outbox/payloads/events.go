package payloads

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/pkg/enums"
)

// OrderCreatedEvent is emitted by checkout inside the order transaction.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID       `json:"order_id" validate:"required"`
	CartID       uuid.UUID       `json:"cart_id"`
	ClientID     uuid.UUID       `json:"client_id" validate:"required"`
	ObjectiveIDs []uuid.UUID     `json:"objective_ids" validate:"min=1"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Platform     enums.Platform  `json:"platform"`
}

// OrderPaidEvent is emitted when the payment callback flips the order to PAYED.
type OrderPaidEvent struct {
	OrderID  uuid.UUID `json:"order_id" validate:"required"`
	CartID   uuid.UUID `json:"cart_id"`
	ClientID uuid.UUID `json:"client_id" validate:"required"`
}

// ObjectiveStatusChangedEvent records one committed state machine transition.
type ObjectiveStatusChangedEvent struct {
	ObjectiveID uuid.UUID                  `json:"objective_id" validate:"required"`
	OrderID     uuid.UUID                  `json:"order_id" validate:"required"`
	ClientID    uuid.UUID                  `json:"client_id"`
	BoosterID   *uuid.UUID                 `json:"booster_id,omitempty"`
	Trigger     enums.ObjectiveTrigger     `json:"trigger"`
	From        enums.OrderObjectiveStatus `json:"from"`
	To          enums.OrderObjectiveStatus `json:"to" validate:"required"`
}

// NotificationRequestedEvent asks the delivery side to notify a client and,
// for executor-facing kinds, the executor subscribers.
type NotificationRequestedEvent struct {
	Kind        enums.NotificationKind     `json:"kind" validate:"required"`
	Audience    enums.NotificationAudience `json:"audience,omitempty"`
	ClientID    uuid.UUID                  `json:"client_id" validate:"required"`
	OrderID     *uuid.UUID                 `json:"order_id,omitempty"`
	ObjectiveID *uuid.UUID                 `json:"objective_id,omitempty"`
	BoosterID   *uuid.UUID                 `json:"booster_id,omitempty"`
	Data        json.RawMessage            `json:"data,omitempty"`
}
