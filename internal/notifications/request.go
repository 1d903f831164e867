package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

// Request is an abstract "notify about K with payload P" call. Formatting and
// channel delivery belong to the consumer of the event.
type Request struct {
	Kind        enums.NotificationKind
	Audience    enums.NotificationAudience
	ClientID    uuid.UUID
	OrderID     *uuid.UUID
	ObjectiveID *uuid.UUID
	BoosterID   *uuid.UUID
	Data        any
}

func (r Request) event() (payloads.NotificationRequestedEvent, error) {
	if !r.Kind.IsValid() {
		return payloads.NotificationRequestedEvent{}, fmt.Errorf("invalid notification kind %q", r.Kind)
	}
	if r.ClientID == uuid.Nil {
		return payloads.NotificationRequestedEvent{}, fmt.Errorf("client id is required")
	}
	event := payloads.NotificationRequestedEvent{
		Kind:        r.Kind,
		Audience:    r.Audience,
		ClientID:    r.ClientID,
		OrderID:     r.OrderID,
		ObjectiveID: r.ObjectiveID,
		BoosterID:   r.BoosterID,
	}
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return payloads.NotificationRequestedEvent{}, fmt.Errorf("encode notification data: %w", err)
		}
		event.Data = raw
	}
	return event, nil
}
