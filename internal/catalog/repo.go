package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func ErrServiceNotExists(slug string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "service %q does not exist", slug)
}

// Repository reads the service catalog. The catalog is maintained by an
// external collaborator, so there are no write operations here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBySlug(ctx context.Context, slug string) (*models.Service, error)
	ListBySlugs(ctx context.Context, slugs []string) (map[string]models.Service, error)
	ListConfigsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceConfig, error)
	ListConfigsByServiceSlugs(ctx context.Context, slugs []string) ([]models.ServiceConfig, error)
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

func (r *repository) GetBySlug(ctx context.Context, slug string) (*models.Service, error) {
	var svc models.Service
	err := r.db.WithContext(ctx).
		Preload("Configs").
		Where("slug = ?", slug).
		First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotExists(slug)
		}
		return nil, err
	}
	return &svc, nil
}

func (r *repository) ListBySlugs(ctx context.Context, slugs []string) (map[string]models.Service, error) {
	out := make(map[string]models.Service, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	var rows []models.Service
	if err := r.db.WithContext(ctx).Where("slug IN ?", unique(slugs)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Slug] = row
	}
	return out, nil
}

func (r *repository) ListConfigsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ServiceConfig, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ServiceConfig
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) ListConfigsByServiceSlugs(ctx context.Context, slugs []string) ([]models.ServiceConfig, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var rows []models.ServiceConfig
	err := r.db.WithContext(ctx).
		Where("service_slug IN ?", unique(slugs)).
		Order("service_slug ASC").
		Order("title ASC").
		Find(&rows).Error
	return rows, err
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
