package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []models.Notification) (int64, error)
	List(ctx context.Context, q inboxQuery) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recipient identifies an inbox: a client id or an executor subscriber id.
type Recipient struct {
	Type enums.RecipientType
	ID   string
}

type inboxQuery struct {
	Recipient  Recipient
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

var deliveryKey = []clause.Column{{Name: "event_id"}, {Name: "recipient_type"}, {Name: "recipient_id"}}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) inbox(ctx context.Context, recipient Recipient) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_type = ? AND recipient_id = ?", recipient.Type, recipient.ID)
}

// CreateBatch reports how many rows were new. A redelivered event finds its
// rows already present and inserts nothing.
func (r *repositoryImpl) CreateBatch(ctx context.Context, rows []models.Notification) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: deliveryKey, DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) List(ctx context.Context, q inboxQuery) ([]models.Notification, *pagination.Cursor, error) {
	scope := r.inbox(ctx, q.Recipient)
	if q.UnreadOnly {
		scope = scope.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := pagination.Keyset(scope, q.Cursor, q.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

// MarkRead reports whether the notification exists in the inbox. Marking an
// already read notification keeps its first read_at.
func (r *repositoryImpl) MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID, at time.Time) (bool, error) {
	res := r.inbox(ctx, recipient).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", at)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}
	var n int64
	err := r.inbox(ctx, recipient).Where("id = ?", notificationID).Count(&n).Error
	return n > 0, err
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error) {
	res := r.inbox(ctx, recipient).
		Where("read_at IS NULL").
		UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore keeps unread rows regardless of age.
func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
