package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
)

// Repository appends cashback movements. One movement per (order, type) is
// enforced by ux_cashback_events_order_type.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, event *models.CashbackEvent) (bool, error)
	Find(ctx context.Context, orderID uuid.UUID, kind enums.CashbackEventType) (*models.CashbackEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append reports false when the order already carries a movement of the same
// type; the stored row is left untouched.
func (r *repository) Append(ctx context.Context, event *models.CashbackEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID, kind enums.CashbackEventType) (*models.CashbackEvent, error) {
	var event models.CashbackEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, kind).
		Take(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
