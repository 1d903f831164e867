package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PromoCode is a service-scoped percentage discount.
type PromoCode struct {
	Code         string         `gorm:"column:code;primaryKey"`
	ServiceSlugs pq.StringArray `gorm:"column:service_slugs;type:text[];not null"`
	Comment      string         `gorm:"column:comment;not null;default:''"`
	UsageLimit   int            `gorm:"column:usage_limit;not null;default:0"`
	FirstBuyOnly bool           `gorm:"column:first_buy_only;not null;default:false"`
	Discount     int            `gorm:"column:discount;not null"`
}

func (PromoCode) TableName() string { return "promo_codes" }

// Covers reports whether the promo applies to the service.
func (p *PromoCode) Covers(serviceSlug string) bool {
	if p == nil {
		return false
	}
	for _, slug := range p.ServiceSlugs {
		if slug == serviceSlug {
			return true
		}
	}
	return false
}

// Discounted returns price - price*discount/100.
func (p *PromoCode) Discounted(price decimal.Decimal) decimal.Decimal {
	if p == nil {
		return price
	}
	off := price.Mul(decimal.NewFromInt(int64(p.Discount))).Div(hundred)
	return price.Sub(off)
}
