package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func ErrCharacterNotExists(characterID string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "character %s does not exist", characterID)
}

// Repository persists game profiles and characters referenced by carts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertProfile(ctx context.Context, profile *models.GameProfile) error
	UpsertCharacter(ctx context.Context, character *models.GameCharacter) error
	GetCharacter(ctx context.Context, characterID string) (*models.GameCharacter, error)
	ListByMembershipIDs(ctx context.Context, membershipIDs []string) ([]models.GameProfile, error)
	LinkToClient(ctx context.Context, membershipIDs []string, clientID uuid.UUID) (int64, error)
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

// UpsertProfile refreshes platform and username but never touches client_id;
// linking happens only at checkout.
func (r *repository) UpsertProfile(ctx context.Context, profile *models.GameProfile) error {
	now := time.Now().UTC()
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	return r.db.WithContext(ctx).
		Omit("ClientID").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "membership_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"platform", "username", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *repository) UpsertCharacter(ctx context.Context, character *models.GameCharacter) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "character_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"membership_id", "character_class"}),
		}).
		Create(character).Error
}

func (r *repository) GetCharacter(ctx context.Context, characterID string) (*models.GameCharacter, error) {
	var character models.GameCharacter
	err := r.db.WithContext(ctx).Where("character_id = ?", characterID).First(&character).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotExists(characterID)
		}
		return nil, err
	}
	return &character, nil
}

func (r *repository) ListByMembershipIDs(ctx context.Context, membershipIDs []string) ([]models.GameProfile, error) {
	if len(membershipIDs) == 0 {
		return nil, nil
	}
	var rows []models.GameProfile
	err := r.db.WithContext(ctx).
		Where("membership_id IN ?", membershipIDs).
		Order("membership_id ASC").
		Find(&rows).Error
	return rows, err
}

// LinkToClient assigns the client to profiles that have none yet. Profiles
// already owned by a client are left untouched, so repeated calls are no-ops.
func (r *repository) LinkToClient(ctx context.Context, membershipIDs []string, clientID uuid.UUID) (int64, error) {
	if len(membershipIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.GameProfile{}).
		Where("membership_id IN ? AND client_id IS NULL", membershipIDs).
		Updates(map[string]any{"client_id": clientID, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
