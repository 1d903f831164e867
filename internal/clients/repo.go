package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func ErrClientNotExists(id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "client %s does not exist", id)
}

// Repository persists clients and their sealed credentials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	Create(ctx context.Context, client *models.Client) error
	UpdateCashback(ctx context.Context, id uuid.UUID, cashback decimal.Decimal) error
	UpdateDiscord(ctx context.Context, id uuid.UUID, discord string) error
	UpsertCredential(ctx context.Context, cred *models.ClientCredential) error
	FindCredential(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (*models.ClientCredential, error)
	ExpireCredential(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (int64, error)
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), id)
}

// LockByID reads the client under a row lock so a cashback check and the
// following write see the same balance.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id), id)
}

func (r *repository) first(q *gorm.DB, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := q.First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotExists(id)
		}
		return nil, err
	}
	return &client, nil
}

// FindByEmail returns gorm.ErrRecordNotFound when no client uses the email.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	client.Email = NormalizeEmail(client.Email)
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *repository) UpdateCashback(ctx context.Context, id uuid.UUID, cashback decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]any{"cashback": cashback, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) UpdateDiscord(ctx context.Context, id uuid.UUID, discord string) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]any{"discord": discord, "updated_at": time.Now().UTC()}).Error
}

// UpsertCredential replaces the sealed values for (client, platform) and
// clears the expired flag.
func (r *repository) UpsertCredential(ctx context.Context, cred *models.ClientCredential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now().UTC()
	cred.CreatedAt, cred.UpdatedAt = now, now
	cred.IsExpired = false
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "client_id"}, {Name: "platform"}},
			DoUpdates: clause.Assignments(map[string]any{
				"account_name_sealed": cred.AccountNameSealed,
				"password_sealed":     cred.PasswordSealed,
				"has_second_factor":   cred.HasSecondFactor,
				"is_expired":          false,
				"updated_at":          now,
			}),
		}).
		Create(cred).Error
}

func (r *repository) FindCredential(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (*models.ClientCredential, error) {
	var cred models.ClientCredential
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND platform = ?", clientID, platform).
		First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *repository) ExpireCredential(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ClientCredential{}).
		Where("client_id = ? AND platform = ? AND is_expired = ?", clientID, platform, false).
		Updates(map[string]any{"is_expired": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
