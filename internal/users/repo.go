package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/db/models"
)

// Profile is an account and, when it has one, its booster profile.
type Profile struct {
	User    models.User
	Booster *models.Booster
}

// IsBooster reports whether the account carries a booster profile.
func (p *Profile) IsBooster() bool {
	return p != nil && p.Booster != nil
}

// Repository reads accounts. Users are provisioned outside this service.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindProfile returns nil, nil when no user has the id.
func (r *Repository) FindProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	db := r.db.WithContext(ctx)
	var profile Profile
	err := db.First(&profile.User, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var boosters []models.Booster
	if err := db.Where("user_id = ?", userID).Limit(1).Find(&boosters).Error; err != nil {
		return nil, err
	}
	if len(boosters) == 1 {
		profile.Booster = &boosters[0]
	}
	return &profile, nil
}
