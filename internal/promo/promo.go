package promo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/littlelight-store/backend/internal/pricing"
	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

// ErrPromoCodeDoesNotExist is returned by Get for unknown codes.
func ErrPromoCodeDoesNotExist(code string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "promo code %q does not exist", code)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
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

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// Service resolves promo codes. Lookup is lenient: a missing or broken promo
// degrades to "no promo" so carts and checkout are never blocked by it.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("promo repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Get is the strict variant used when a client applies a code explicitly.
func (s *Service) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoCodeDoesNotExist(code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	return promo, nil
}

// Lookup returns nil when code is empty, unknown or cannot be loaded.
func (s *Service) Lookup(ctx context.Context, code *string) *models.PromoCode {
	if code == nil || normalizeCode(*code) == "" {
		return nil
	}
	promo, err := s.Get(ctx, *code)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Error(s.logg.WithField(ctx, "promo_code", *code), "promo lookup failed, continuing without promo", err)
		}
		return nil
	}
	return promo
}

// Apply discounts the quote when the promo covers the service. The discounted
// line keeps its undiscounted total as the old price.
func Apply(promo *models.PromoCode, serviceSlug string, q pricing.Quote) pricing.Quote {
	if !promo.Covers(serviceSlug) {
		return q
	}
	return pricing.Quote{Total: promo.Discounted(q.Total), TotalOld: q.Total}
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
