// Package ledger keeps the append-only history behind client cashback
// balances. The balance itself lives on the client row.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
)

type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordCashbackEventInput) (*models.CashbackEvent, error)
}

type RecordCashbackEventInput struct {
	OrderID  uuid.UUID
	ClientID uuid.UUID
	Type     enums.CashbackEventType
	Amount   decimal.Decimal
}

func (in RecordCashbackEventInput) check() error {
	switch {
	case in.OrderID == uuid.Nil:
		return fmt.Errorf("order id is required")
	case in.ClientID == uuid.Nil:
		return fmt.Errorf("client id is required")
	case !in.Type.IsValid():
		return fmt.Errorf("invalid cashback event type %q", in.Type)
	case in.Amount.IsNegative():
		return fmt.Errorf("cashback amount must not be negative")
	}
	return nil
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent writes through tx so the entry commits with the balance change
// it describes. Recording the same (order, type) twice returns the first
// entry, and a second entry with a different amount is an error.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordCashbackEventInput) (*models.CashbackEvent, error) {
	if err := input.check(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	event := &models.CashbackEvent{
		ClientID: input.ClientID,
		OrderID:  input.OrderID,
		Type:     input.Type,
		Amount:   input.Amount,
	}
	inserted, err := repo.Append(ctx, event)
	if err != nil {
		return nil, err
	}
	if inserted {
		return event, nil
	}

	existing, err := repo.Find(ctx, input.OrderID, input.Type)
	if err != nil {
		return nil, fmt.Errorf("load recorded %s for order %s: %w", input.Type, input.OrderID, err)
	}
	if existing.ClientID != input.ClientID || !existing.Amount.Equal(input.Amount) {
		return nil, fmt.Errorf("order %s already recorded %s of %s", input.OrderID, input.Type, existing.Amount)
	}
	return existing, nil
}
