package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

type recordingDeliverer struct {
	eventIDs []uuid.UUID
	calls    []payloads.NotificationRequestedEvent
	err      error
}

func (r *recordingDeliverer) Deliver(_ context.Context, eventID uuid.UUID, req payloads.NotificationRequestedEvent) (int64, error) {
	r.eventIDs = append(r.eventIDs, eventID)
	r.calls = append(r.calls, req)
	return 1, r.err
}

func TestEventHandlerDeliversUnderTheEventID(t *testing.T) {
	svc := &recordingDeliverer{}
	handler, err := NewEventHandler(svc)
	if err != nil {
		t.Fatalf("NewEventHandler: %v", err)
	}
	eventID := uuid.New()
	req := &payloads.NotificationRequestedEvent{Kind: enums.NotificationOrderReadyForApproval, ClientID: uuid.New()}

	if err := handler.Handle(context.Background(), eventID, req); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(svc.calls) != 1 || svc.eventIDs[0] != eventID || svc.calls[0].Kind != enums.NotificationOrderReadyForApproval {
		t.Fatalf("unexpected deliveries %+v", svc.calls)
	}
}

func TestEventHandlerSurfacesDeliveryErrors(t *testing.T) {
	boom := errors.New("db down")
	handler, _ := NewEventHandler(&recordingDeliverer{err: boom})
	err := handler.Handle(context.Background(), uuid.New(), &payloads.NotificationRequestedEvent{Kind: enums.NotificationOrderPaused, ClientID: uuid.New()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if err := handler.Handle(context.Background(), uuid.New(), &payloads.OrderPaidEvent{}); err == nil {
		t.Fatal("expected error for foreign payload")
	}
}

func TestEventHandlerListsNotificationEvents(t *testing.T) {
	handler, _ := NewEventHandler(&recordingDeliverer{})
	events := handler.Events()
	if len(events) != 2 || events[0] != enums.EventNotificationRequested || events[1] != enums.EventOrderReadyForApproval {
		t.Fatalf("unexpected events %v", events)
	}
}
