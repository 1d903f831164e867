package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
	"github.com/littlelight-store/backend/pkg/pagination"
)

// Service delivers requested notifications into inboxes and serves them back.
type Service interface {
	Deliver(ctx context.Context, eventID uuid.UUID, req payloads.NotificationRequestedEvent) (int64, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, clientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, clientID uuid.UUID) (int64, error)
}

type service struct {
	repo      Repository
	executors []string
	logg      *logger.Logger
}

// ListParams configures pagination for a client inbox.
type ListParams struct {
	ClientID   uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies. Executor subscriber ids are
// injected from configuration.
func NewService(repo Repository, executorSubscriberIDs []string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	executors := make([]string, 0, len(executorSubscriberIDs))
	for _, id := range executorSubscriberIDs {
		if id = strings.TrimSpace(id); id != "" {
			executors = append(executors, id)
		}
	}
	return &service{repo: repo, executors: executors, logg: logg}, nil
}

// Deliver writes one inbox row per recipient. Redelivery of the same event
// is absorbed by the unique (event, recipient) key.
func (s *service) Deliver(ctx context.Context, eventID uuid.UUID, req payloads.NotificationRequestedEvent) (int64, error) {
	if eventID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if !req.Kind.IsValid() {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid notification kind %q", req.Kind)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification payload")
	}

	base := models.Notification{
		EventID:     eventID,
		Kind:        req.Kind,
		OrderID:     req.OrderID,
		ObjectiveID: req.ObjectiveID,
		Payload:     payload,
	}
	var rows []models.Notification
	if req.Audience.IncludesClient() && req.ClientID != uuid.Nil {
		row := base
		row.RecipientType = enums.RecipientClient
		row.RecipientID = req.ClientID.String()
		rows = append(rows, row)
	}
	if req.Audience.IncludesExecutors(req.Kind) {
		for _, subscriber := range s.executors {
			row := base
			row.RecipientType = enums.RecipientExecutor
			row.RecipientID = subscriber
			rows = append(rows, row)
		}
	}

	created, err := s.repo.CreateBatch(ctx, rows)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notifications")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID.String(),
		"kind":       req.Kind,
		"recipients": len(rows),
		"created":    created,
	})
	s.logg.Info(logCtx, "notification delivered")
	return created, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}

	query := inboxQuery{
		Recipient:  clientRecipient(params.ClientID),
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, clientID, notificationID uuid.UUID) error {
	if clientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.MarkRead(ctx, clientRecipient(clientID), notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, clientID uuid.UUID) (int64, error) {
	if clientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}

	count, err := s.repo.MarkAllRead(ctx, clientRecipient(clientID), time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func clientRecipient(clientID uuid.UUID) Recipient {
	return Recipient{Type: enums.RecipientClient, ID: clientID.String()}
}
