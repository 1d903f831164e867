package types

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RangeOptions is a range selection priced by the storefront. The backend
// trusts TotalPrice and TotalOldPrice verbatim and never re-derives them from
// the labels or points.
type RangeOptions struct {
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalOldPrice decimal.Decimal `json:"totalOldPrice"`
	FirstLabel    string          `json:"firstLabel"`
	LastLabel     string          `json:"lastLabel"`
	PointsFrom    int             `json:"pointsFrom"`
	PointsTo      int             `json:"pointsTo"`
}

// Validate checks the interval and that prices are not negative.
func (r RangeOptions) Validate() error {
	if r.PointsFrom > r.PointsTo {
		return errors.New("range start must not exceed range end")
	}
	if r.TotalPrice.IsNegative() || r.TotalOldPrice.IsNegative() {
		return errors.New("range prices must not be negative")
	}
	return nil
}
