package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/pkg/enums"
)

// Service is a catalog entry. It is managed outside this backend and read-only here.
type Service struct {
	Slug              string                  `gorm:"column:slug;primaryKey"`
	Title             string                  `gorm:"column:title;not null"`
	Category          string                  `gorm:"column:category;not null;default:''"`
	ConfigurationType enums.ConfigurationType `gorm:"column:configuration_type;type:configuration_type;not null"`
	BasePrice         decimal.NullDecimal     `gorm:"column:base_price;type:numeric(12,2)"`
	BoosterPercent    int                     `gorm:"column:booster_percent;not null;default:0"`
	Configs           []ServiceConfig         `gorm:"foreignKey:ServiceSlug;references:Slug"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (Service) TableName() string { return "services" }

// ServiceConfig is a selectable option of a service.
type ServiceConfig struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceSlug string              `gorm:"column:service_slug;not null"`
	Title       string              `gorm:"column:title;not null"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	OldPrice    decimal.NullDecimal `gorm:"column:old_price;type:numeric(12,2)"`
	ExtraData   map[string]any      `gorm:"column:extra_data;type:jsonb;serializer:json"`
}

func (ServiceConfig) TableName() string { return "service_configs" }
