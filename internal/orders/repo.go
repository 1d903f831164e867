package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/pagination"
)

// Repository defines persistence operations for client orders and objectives.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.ClientOrder) error
	FindOrderWithObjectives(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error)
	LockOrderByCartID(ctx context.Context, cartID uuid.UUID) (*models.ClientOrder, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.ClientOrderStatus, now time.Time) error
	FindObjective(ctx context.Context, objectiveID uuid.UUID) (*models.ClientOrderObjective, error)
	LockObjective(ctx context.Context, objectiveID uuid.UUID) (*models.ClientOrderObjective, error)
	ListObjectivesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ClientOrderObjective, error)
	UpdateObjectiveStatus(ctx context.Context, objectiveID uuid.UUID, status enums.OrderObjectiveStatus, now time.Time) error
	ClaimObjective(ctx context.Context, objectiveID, boosterID uuid.UUID, status enums.OrderObjectiveStatus, now time.Time) (bool, error)
	ListPendingApprovalBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ClientOrderObjective, error)
	ListObjectives(ctx context.Context, filter ObjectiveFilter, params pagination.Params) ([]models.ClientOrderObjective, *pagination.Cursor, error)
}

// ObjectiveFilter scopes objective listings. Exactly one of the fields is
// expected to be set.
type ObjectiveFilter struct {
	ClientID  *uuid.UUID
	BoosterID *uuid.UUID
	Available bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its objectives.
func (r *repository) CreateOrder(ctx context.Context, order *models.ClientOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Objectives {
		if order.Objectives[i].ID == uuid.Nil {
			order.Objectives[i].ID = uuid.New()
		}
		order.Objectives[i].OrderID = order.ID
		order.Objectives[i].ClientID = order.ClientID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrderWithObjectives(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error) {
	var order models.ClientOrder
	err := r.db.WithContext(ctx).
		Preload("Objectives", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, translateOrderErr(err)
	}
	return &order, nil
}

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error) {
	var order models.ClientOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, translateOrderErr(err)
	}
	return &order, nil
}

func (r *repository) LockOrderByCartID(ctx context.Context, cartID uuid.UUID) (*models.ClientOrder, error) {
	var order models.ClientOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		First(&order).Error
	if err != nil {
		return nil, translateOrderErr(err)
	}
	return &order, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.ClientOrderStatus, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ClientOrder{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":            status,
			"status_changed_at": now,
		}).Error
}

func (r *repository) FindObjective(ctx context.Context, objectiveID uuid.UUID) (*models.ClientOrderObjective, error) {
	var objective models.ClientOrderObjective
	if err := r.db.WithContext(ctx).Where("id = ?", objectiveID).First(&objective).Error; err != nil {
		return nil, translateObjectiveErr(err, objectiveID)
	}
	return &objective, nil
}

// LockObjective serializes transitions on a single objective.
func (r *repository) LockObjective(ctx context.Context, objectiveID uuid.UUID) (*models.ClientOrderObjective, error) {
	var objective models.ClientOrderObjective
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", objectiveID).
		First(&objective).Error
	if err != nil {
		return nil, translateObjectiveErr(err, objectiveID)
	}
	return &objective, nil
}

func (r *repository) ListObjectivesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ClientOrderObjective, error) {
	var objectives []models.ClientOrderObjective
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&objectives).Error
	if err != nil {
		return nil, err
	}
	return objectives, nil
}

func (r *repository) UpdateObjectiveStatus(ctx context.Context, objectiveID uuid.UUID, status enums.OrderObjectiveStatus, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ClientOrderObjective{}).
		Where("id = ?", objectiveID).
		Updates(map[string]any{
			"status":            status,
			"status_changed_at": now,
		}).Error
}

// ClaimObjective sets the booster only while the objective is unassigned.
// It reports false when another booster already holds the objective.
func (r *repository) ClaimObjective(ctx context.Context, objectiveID, boosterID uuid.UUID, status enums.OrderObjectiveStatus, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ClientOrderObjective{}).
		Where("id = ? AND booster_id IS NULL", objectiveID).
		Updates(map[string]any{
			"booster_id":        boosterID,
			"status":            status,
			"status_changed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListPendingApprovalBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ClientOrderObjective, error) {
	var objectives []models.ClientOrderObjective
	query := r.db.WithContext(ctx).
		Where("status = ? AND status_changed_at < ?", enums.ObjectiveStatusPendingApproval, cutoff).
		Order("status_changed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&objectives).Error; err != nil {
		return nil, err
	}
	return objectives, nil
}

func (r *repository) ListObjectives(ctx context.Context, filter ObjectiveFilter, params pagination.Params) ([]models.ClientOrderObjective, *pagination.Cursor, error) {
	cursor, err := params.Decode()
	if err != nil {
		return nil, nil, err
	}
	query := r.db.WithContext(ctx).Model(&models.ClientOrderObjective{})
	switch {
	case filter.ClientID != nil:
		query = query.Where("client_id = ?", *filter.ClientID)
	case filter.BoosterID != nil:
		query = query.Where("booster_id = ?", *filter.BoosterID)
	case filter.Available:
		query = query.Where("booster_id IS NULL AND status IN ?", []enums.OrderObjectiveStatus{
			enums.ObjectiveStatusProcessing,
			enums.ObjectiveStatusAwaitingBooster,
		})
	}

	var objectives []models.ClientOrderObjective
	if err := pagination.Keyset(query, cursor, params.Limit).Find(&objectives).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(objectives, params.Limit, func(o models.ClientOrderObjective) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func translateOrderErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrClientOrderNotExists()
	}
	return err
}

func translateObjectiveErr(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderObjectiveNotExists(id)
	}
	return err
}
