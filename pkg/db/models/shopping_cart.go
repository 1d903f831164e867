package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/littlelight-store/backend/pkg/db/types"
	"github.com/littlelight-store/backend/pkg/types"
)

// ShoppingCart holds items until checkout deletes it.
type ShoppingCart struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromoCode *string            `gorm:"column:promo_code"`
	Items     []ShoppingCartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ShoppingCart) TableName() string { return "shopping_carts" }

// ShoppingCartItem targets one character with one service. Price and OldPrice
// are the values last computed for audit; reads always recompute them.
type ShoppingCartItem struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID           `gorm:"column:cart_id;type:uuid;not null"`
	ServiceSlug       string              `gorm:"column:service_slug;not null"`
	GameProfileID     string              `gorm:"column:game_profile_id;not null"`
	CharacterID       string              `gorm:"column:character_id;not null"`
	SelectedOptionIDs dbtypes.UUIDArray   `gorm:"column:selected_option_ids;type:uuid[];not null"`
	RangeOptions      *types.RangeOptions `gorm:"column:range_options;type:jsonb;serializer:json"`
	Price             decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	OldPrice          decimal.Decimal     `gorm:"column:old_price;type:numeric(12,2);not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (ShoppingCartItem) TableName() string { return "shopping_cart_items" }
