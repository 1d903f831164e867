package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/littlelight-store/backend/pkg/db/types"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/types"
)

// ClientOrder is created once per checkout. CartID keeps the id of the cart
// it was built from and doubles as the public order number.
type ClientOrder struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID               `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	ClientID        uuid.UUID               `gorm:"column:client_id;type:uuid;not null"`
	PaymentID       string                  `gorm:"column:payment_id;not null;uniqueIndex"`
	Status          enums.ClientOrderStatus `gorm:"column:status;type:client_order_status;not null;default:'AWAIT_PAYMENT'"`
	TotalPrice      decimal.Decimal         `gorm:"column:total_price;type:numeric(12,2);not null"`
	Cashback        decimal.Decimal         `gorm:"column:cashback;type:numeric(12,2);not null;default:0"`
	Platform        enums.Platform          `gorm:"column:platform;type:platform;not null"`
	Comment         *string                 `gorm:"column:comment"`
	PromoCode       *string                 `gorm:"column:promo_code"`
	Objectives      []ClientOrderObjective  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusChangedAt time.Time               `gorm:"column:status_changed_at;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (ClientOrder) TableName() string { return "client_orders" }

// ClientOrderObjective is one line of a client order with its own lifecycle.
type ClientOrderObjective struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	ClientID          uuid.UUID                  `gorm:"column:client_id;type:uuid;not null"`
	ServiceSlug       string                     `gorm:"column:service_slug;not null"`
	GameProfileID     string                     `gorm:"column:game_profile_id;not null"`
	CharacterID       string                     `gorm:"column:character_id;not null"`
	SelectedOptionIDs dbtypes.UUIDArray          `gorm:"column:selected_option_ids;type:uuid[];not null"`
	RangeOptions      *types.RangeOptions        `gorm:"column:range_options;type:jsonb;serializer:json"`
	Price             decimal.Decimal            `gorm:"column:price;type:numeric(12,2);not null"`
	BoosterID         *uuid.UUID                 `gorm:"column:booster_id;type:uuid"`
	Status            enums.OrderObjectiveStatus `gorm:"column:status;type:order_objective_status;not null;default:'CREATED'"`
	StatusChangedAt   time.Time                  `gorm:"column:status_changed_at;not null"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (ClientOrderObjective) TableName() string { return "client_order_objectives" }
