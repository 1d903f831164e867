package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/pkg/enums"
)

// Client is a paying customer, identified by email.
type Client struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;not null;uniqueIndex"`
	Username  *string         `gorm:"column:username"`
	Discord   *string         `gorm:"column:discord"`
	Cashback  decimal.Decimal `gorm:"column:cashback;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Client) TableName() string { return "clients" }

// ClientCredential stores sealed game-account credentials per platform.
type ClientCredential struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID          uuid.UUID      `gorm:"column:client_id;type:uuid;not null"`
	Platform          enums.Platform `gorm:"column:platform;type:platform;not null"`
	AccountNameSealed []byte         `gorm:"column:account_name_sealed;not null"`
	PasswordSealed    []byte         `gorm:"column:password_sealed;not null"`
	HasSecondFactor   bool           `gorm:"column:has_second_factor;not null;default:false"`
	IsExpired         bool           `gorm:"column:is_expired;not null;default:false"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (ClientCredential) TableName() string { return "client_credentials" }

// CashbackEvent is an append-only cashback ledger entry.
type CashbackEvent struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID  uuid.UUID               `gorm:"column:client_id;type:uuid;not null"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	Type      enums.CashbackEventType `gorm:"column:type;type:cashback_event_type;not null"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (CashbackEvent) TableName() string { return "cashback_events" }
