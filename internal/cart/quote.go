package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/pricing"
	"github.com/littlelight-store/backend/internal/promo"
	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

// ItemQuote is the current price of one cart item. Base ignores the promo,
// Effective has it applied.
type ItemQuote struct {
	Item      models.ShoppingCartItem
	Service   models.Service
	Base      pricing.Quote
	Effective pricing.Quote
}

// QuoteItems prices every item from the current catalog and sums the
// effective quotes. Each quote is rounded to cents before summing, so the
// total always equals the sum of the stored item prices. Persisted item
// prices are never read.
func QuoteItems(ctx context.Context, cat catalog.Repository, items []models.ShoppingCartItem, code *models.PromoCode) ([]ItemQuote, pricing.Quote, error) {
	total := pricing.Quote{}
	if len(items) == 0 {
		return nil, total, nil
	}

	slugs := make([]string, 0, len(items))
	var optionIDs []uuid.UUID
	for _, item := range items {
		slugs = append(slugs, item.ServiceSlug)
		optionIDs = append(optionIDs, item.SelectedOptionIDs...)
	}
	services, err := cat.ListBySlugs(ctx, slugs)
	if err != nil {
		return nil, total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load services")
	}
	configs, err := cat.ListConfigsByIDs(ctx, optionIDs)
	if err != nil {
		return nil, total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service options")
	}

	quotes := make([]ItemQuote, 0, len(items))
	for _, item := range items {
		svc, ok := services[item.ServiceSlug]
		if !ok {
			return nil, total, catalog.ErrServiceNotExists(item.ServiceSlug)
		}
		selected, err := pricing.SelectOptions(svc, configs, item.SelectedOptionIDs)
		if err != nil {
			return nil, total, err
		}
		base, err := pricing.Price(svc, selected, item.RangeOptions)
		if err != nil {
			return nil, total, err
		}
		base = base.Cents()
		effective := promo.Apply(code, svc.Slug, base).Cents()
		quotes = append(quotes, ItemQuote{Item: item, Service: svc, Base: base, Effective: effective})
		total = total.Add(effective)
	}
	return quotes, total, nil
}
