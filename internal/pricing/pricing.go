// Package pricing computes item prices from the catalog. Pricing is a closed
// switch over the four configuration types.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/types"
)

// Quote is a (total, total_old) price pair.
type Quote struct {
	Total    decimal.Decimal `json:"total"`
	TotalOld decimal.Decimal `json:"total_old"`
}

// Add sums two quotes.
func (q Quote) Add(other Quote) Quote {
	return Quote{Total: q.Total.Add(other.Total), TotalOld: q.TotalOld.Add(other.TotalOld)}
}

// Cents rounds both prices to whole cents, the precision money is stored at.
func (q Quote) Cents() Quote {
	return Quote{Total: q.Total.Round(2), TotalOld: q.TotalOld.Round(2)}
}

// Price maps the service configuration type to a quote. Options are matched
// by id and must already be the ones selected for the item.
func Price(service models.Service, options []models.ServiceConfig, rng *types.RangeOptions) (Quote, error) {
	switch service.ConfigurationType {
	case enums.ConfigurationBasePrice, enums.ConfigurationOptionsSelect, enums.ConfigurationOptionsSteps:
		return optionsQuote(service, options), nil
	case enums.ConfigurationRangeSelect:
		if rng == nil {
			return Quote{}, pkgerrors.Newf(pkgerrors.CodeValidation, "service %s requires range options", service.Slug)
		}
		return Quote{Total: rng.TotalPrice, TotalOld: rng.TotalOldPrice}, nil
	default:
		return Quote{}, pkgerrors.Newf(pkgerrors.CodeInternal, "unknown configuration type %q for service %s", service.ConfigurationType, service.Slug)
	}
}

func optionsQuote(service models.Service, options []models.ServiceConfig) Quote {
	base := decimal.Zero
	if service.BasePrice.Valid {
		base = service.BasePrice.Decimal
	}
	q := Quote{Total: base, TotalOld: base}
	for _, opt := range options {
		q.Total = q.Total.Add(opt.Price)
		if opt.OldPrice.Valid {
			q.TotalOld = q.TotalOld.Add(opt.OldPrice.Decimal)
		} else {
			q.TotalOld = q.TotalOld.Add(opt.Price)
		}
	}
	return q
}

// SelectOptions picks the selected options of a service in selection order.
// The selection is a set: a repeated id counts once. Ids that do not belong to
// the service are reported as a validation error.
func SelectOptions(service models.Service, catalog []models.ServiceConfig, selected []uuid.UUID) ([]models.ServiceConfig, error) {
	byID := make(map[uuid.UUID]models.ServiceConfig, len(catalog))
	for _, opt := range catalog {
		if opt.ServiceSlug == service.Slug {
			byID[opt.ID] = opt
		}
	}
	out := make([]models.ServiceConfig, 0, len(selected))
	seen := make(map[uuid.UUID]struct{}, len(selected))
	var unknown []string
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		opt, ok := byID[id]
		if !ok {
			unknown = append(unknown, id.String())
			continue
		}
		out = append(out, opt)
	}
	if len(unknown) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d option(s) do not belong to service %s", len(unknown), service.Slug)).
			WithDetails(map[string]any{"option_ids": unknown})
	}
	return out, nil
}

// OptionIDs lists the ids of opts, never nil.
func OptionIDs(opts []models.ServiceConfig) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(opts))
	for _, opt := range opts {
		ids = append(ids, opt.ID)
	}
	return ids
}
