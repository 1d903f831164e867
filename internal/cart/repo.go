package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func ErrShoppingCartDoesNotExist(cartID uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "shopping cart %s does not exist", cartID)
}

func ErrCartItemDoesNotExist(itemID uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "cart item %s does not exist", itemID)
}

// Repository persists shopping carts and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.ShoppingCart) error
	FindByID(ctx context.Context, cartID uuid.UUID) (*models.ShoppingCart, error)
	FindByIDForUpdate(ctx context.Context, cartID uuid.UUID) (*models.ShoppingCart, error)
	AddItem(ctx context.Context, item *models.ShoppingCartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	SetPromo(ctx context.Context, cartID uuid.UUID, code *string) error
	Delete(ctx context.Context, cartID uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, cart *models.ShoppingCart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Items").Create(cart).Error
}

func (r *repository) FindByID(ctx context.Context, cartID uuid.UUID) (*models.ShoppingCart, error) {
	return r.find(r.db.WithContext(ctx), cartID)
}

// FindByIDForUpdate row-locks the cart for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, cartID uuid.UUID) (*models.ShoppingCart, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), cartID)
}

func (r *repository) find(q *gorm.DB, cartID uuid.UUID) (*models.ShoppingCart, error) {
	var cart models.ShoppingCart
	err := q.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShoppingCartDoesNotExist(cartID)
		}
		return nil, err
	}
	return &cart, nil
}

func (r *repository) AddItem(ctx context.Context, item *models.ShoppingCartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.ShoppingCartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCartItemDoesNotExist(itemID)
	}
	return nil
}

func (r *repository) SetPromo(ctx context.Context, cartID uuid.UUID, code *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.ShoppingCart{}).
		Where("id = ?", cartID).
		Update("promo_code", code)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrShoppingCartDoesNotExist(cartID)
	}
	return nil
}

// Delete removes the items and then the cart.
func (r *repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.ShoppingCartItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", cartID).Delete(&models.ShoppingCart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrShoppingCartDoesNotExist(cartID)
	}
	return nil
}
