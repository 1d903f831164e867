package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/pricing"
	"github.com/littlelight-store/backend/internal/profiles"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type promoLookup interface {
	Lookup(ctx context.Context, code *string) *models.PromoCode
}

// Service exposes the shopping cart use cases.
type Service interface {
	AddItem(ctx context.Context, cartID *uuid.UUID, input AddItemInput) (*View, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*View, error)
	ApplyPromo(ctx context.Context, cartID uuid.UUID, code string) (*View, error)
	Get(ctx context.Context, cartID uuid.UUID) (*View, error)
	Delete(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	profiles profiles.Repository
	promos   promoLookup
	tx       txRunner
	logg     *logger.Logger
}

func NewService(repo Repository, cat catalog.Repository, prof profiles.Repository, promos promoLookup, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if prof == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo lookup required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, catalog: cat, profiles: prof, promos: promos, tx: tx, logg: logg}, nil
}

type ProfileInput struct {
	MembershipID string
	Platform     enums.Platform
	Username     string
}

type CharacterInput struct {
	CharacterID    string
	CharacterClass string
}

// AddItemInput targets one character with one service.
type AddItemInput struct {
	ServiceSlug       string
	Profile           ProfileInput
	Character         CharacterInput
	SelectedOptionIDs []uuid.UUID
	RangeOptions      *types.RangeOptions
}

func (in AddItemInput) validate() error {
	if strings.TrimSpace(in.ServiceSlug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "service slug is required")
	}
	if strings.TrimSpace(in.Profile.MembershipID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "membership id is required")
	}
	if !in.Profile.Platform.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid platform %q", in.Profile.Platform)
	}
	if strings.TrimSpace(in.Character.CharacterID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	if in.RangeOptions != nil {
		if err := in.RangeOptions.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
	}
	return nil
}

// View is a cart with prices recomputed at read time.
type View struct {
	ID        uuid.UUID       `json:"id"`
	PromoCode *string         `json:"promo_code,omitempty"`
	Items     []ItemView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	TotalOld  decimal.Decimal `json:"total_old"`
	CreatedAt time.Time       `json:"created_at"`
}

type ItemView struct {
	ID                uuid.UUID           `json:"id"`
	ServiceSlug       string              `json:"service_slug"`
	ServiceTitle      string              `json:"service_title"`
	GameProfileID     string              `json:"game_profile_id"`
	CharacterID       string              `json:"character_id"`
	SelectedOptionIDs []uuid.UUID         `json:"selected_option_ids"`
	RangeOptions      *types.RangeOptions `json:"range_options,omitempty"`
	Price             decimal.Decimal     `json:"price"`
	OldPrice          decimal.Decimal     `json:"old_price"`
}

// AddItem creates the cart on first use. A cart id that is not known yet is
// used as the id of the new cart.
func (s *service) AddItem(ctx context.Context, cartID *uuid.UUID, input AddItemInput) (*View, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var resolved uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.loadOrCreate(ctx, repo, cartID)
		if err != nil {
			return err
		}
		resolved = cart.ID

		svc, err := s.catalog.WithTx(tx).GetBySlug(ctx, input.ServiceSlug)
		if err != nil {
			return err
		}
		selected, err := pricing.SelectOptions(*svc, svc.Configs, input.SelectedOptionIDs)
		if err != nil {
			return err
		}
		quote, err := pricing.Price(*svc, selected, input.RangeOptions)
		if err != nil {
			return err
		}

		prof := s.profiles.WithTx(tx)
		if err := prof.UpsertProfile(ctx, &models.GameProfile{
			MembershipID: input.Profile.MembershipID,
			Platform:     input.Profile.Platform,
			Username:     input.Profile.Username,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert game profile")
		}
		if err := prof.UpsertCharacter(ctx, &models.GameCharacter{
			CharacterID:    input.Character.CharacterID,
			MembershipID:   input.Profile.MembershipID,
			CharacterClass: input.Character.CharacterClass,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert game character")
		}

		item := &models.ShoppingCartItem{
			ID:                uuid.New(),
			CartID:            cart.ID,
			ServiceSlug:       svc.Slug,
			GameProfileID:     input.Profile.MembershipID,
			CharacterID:       input.Character.CharacterID,
			SelectedOptionIDs: pricing.OptionIDs(selected),
			RangeOptions:      input.RangeOptions,
			Price:             quote.Total,
			OldPrice:          quote.TotalOld,
		}
		if err := repo.AddItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, resolved)
}

func (s *service) loadOrCreate(ctx context.Context, repo Repository, cartID *uuid.UUID) (*models.ShoppingCart, error) {
	if cartID != nil && *cartID != uuid.Nil {
		cart, err := repo.FindByIDForUpdate(ctx, *cartID)
		if err == nil {
			return cart, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
	}
	cart := &models.ShoppingCart{}
	if cartID != nil {
		cart.ID = *cartID
	}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	s.logg.Info(s.logg.WithField(ctx, "cart_id", cart.ID.String()), "shopping cart created")
	return cart, nil
}

// RemoveItem deletes one item. The cart survives even when it becomes empty.
func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*View, error) {
	if err := s.repo.DeleteItem(ctx, cartID, itemID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.Get(ctx, cartID)
}

// ApplyPromo stores the code when it resolves. An empty or unknown code
// leaves the cart without a promo.
func (s *service) ApplyPromo(ctx context.Context, cartID uuid.UUID, code string) (*View, error) {
	var stored *string
	if code = strings.TrimSpace(code); code != "" {
		if promo := s.promos.Lookup(ctx, &code); promo != nil {
			stored = &promo.Code
		} else {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cart_id": cartID.String(), "promo_code": code}), "promo code not found, cart left without promo")
		}
	}
	if err := s.repo.SetPromo(ctx, cartID, stored); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart promo")
	}
	return s.Get(ctx, cartID)
}

func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*View, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	code := s.promos.Lookup(ctx, cart.PromoCode)
	quotes, total, err := QuoteItems(ctx, s.catalog, cart.Items, code)
	if err != nil {
		return nil, err
	}
	return buildView(cart, code, quotes, total), nil
}

func (s *service) Delete(ctx context.Context, cartID uuid.UUID) error {
	if err := s.repo.Delete(ctx, cartID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

func buildView(cart *models.ShoppingCart, code *models.PromoCode, quotes []ItemQuote, total pricing.Quote) *View {
	view := &View{
		ID:        cart.ID,
		Items:     make([]ItemView, 0, len(quotes)),
		Total:     total.Total,
		TotalOld:  total.TotalOld,
		CreatedAt: cart.CreatedAt,
	}
	if code != nil {
		view.PromoCode = &code.Code
	}
	for _, q := range quotes {
		view.Items = append(view.Items, ItemView{
			ID:                q.Item.ID,
			ServiceSlug:       q.Item.ServiceSlug,
			ServiceTitle:      q.Service.Title,
			GameProfileID:     q.Item.GameProfileID,
			CharacterID:       q.Item.CharacterID,
			SelectedOptionIDs: q.Item.SelectedOptionIDs,
			RangeOptions:      q.Item.RangeOptions,
			Price:             q.Effective.Total,
			OldPrice:          q.Effective.TotalOld,
		})
	}
	return view
}
