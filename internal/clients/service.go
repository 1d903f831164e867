package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

type sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Credentials is the plaintext view handed to the booster working an order.
type Credentials struct {
	Platform        enums.Platform `json:"platform"`
	AccountName     string         `json:"account_name"`
	Password        string         `json:"password"`
	HasSecondFactor bool           `json:"has_second_factor"`
	IsExpired       bool           `json:"is_expired"`
}

type SetCredentialsInput struct {
	ClientID        uuid.UUID
	Platform        enums.Platform
	AccountName     string
	Password        string
	HasSecondFactor bool
}

// Service manages client accounts and the game credentials boosters log in with.
type Service interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, email string) (*models.Client, bool, error)
	SetCredentials(ctx context.Context, input SetCredentialsInput) error
	ExpireCredentials(ctx context.Context, tx *gorm.DB, clientID uuid.UUID, platform enums.Platform) (bool, error)
	HasActiveCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (bool, error)
	RevealCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (*Credentials, error)
}

type service struct {
	repo   Repository
	sealer sealer
	logg   *logger.Logger
}

func NewService(repo Repository, sealer sealer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("credentials sealer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, sealer: sealer, logg: logg}, nil
}

// FindOrCreate resolves the client by email inside tx. The bool reports
// whether the client was created.
func (s *service) FindOrCreate(ctx context.Context, tx *gorm.DB, email string) (*models.Client, bool, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "valid client email is required")
	}
	repo := s.repo.WithTx(tx)
	client, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return client, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client by email")
	}
	client = &models.Client{Email: email}
	if err := repo.Create(ctx, client); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	s.logg.Info(s.logg.WithField(ctx, logger.KeyClientID, client.ID), "client created")
	return client, true, nil
}

func (s *service) SetCredentials(ctx context.Context, input SetCredentialsInput) error {
	if input.ClientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id is required")
	}
	if !input.Platform.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid platform %q", input.Platform)
	}
	if strings.TrimSpace(input.AccountName) == "" || input.Password == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account name and password are required")
	}
	if _, err := s.repo.FindByID(ctx, input.ClientID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}

	account, err := s.sealer.Seal([]byte(strings.TrimSpace(input.AccountName)))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal account name")
	}
	password, err := s.sealer.Seal([]byte(input.Password))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal password")
	}
	cred := &models.ClientCredential{
		ClientID:          input.ClientID,
		Platform:          input.Platform,
		AccountNameSealed: account,
		PasswordSealed:    password,
		HasSecondFactor:   input.HasSecondFactor,
	}
	if err := s.repo.UpsertCredential(ctx, cred); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store credentials")
	}
	logCtx := s.logg.WithFields(s.logg.WithField(ctx, logger.KeyClientID, input.ClientID), map[string]any{"platform": input.Platform})
	s.logg.Info(logCtx, "client credentials stored")
	return nil
}

// ExpireCredentials flags the stored credentials as no longer valid. The bool
// reports whether an active credential was expired.
func (s *service) ExpireCredentials(ctx context.Context, tx *gorm.DB, clientID uuid.UUID, platform enums.Platform) (bool, error) {
	n, err := s.repo.WithTx(tx).ExpireCredential(ctx, clientID, platform)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire credentials")
	}
	return n > 0, nil
}

func (s *service) HasActiveCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (bool, error) {
	cred, err := s.repo.FindCredential(ctx, clientID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credentials")
	}
	return !cred.IsExpired, nil
}

func (s *service) RevealCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (*Credentials, error) {
	cred, err := s.repo.FindCredential(ctx, clientID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credentials not set")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credentials")
	}
	account, err := s.sealer.Open(cred.AccountNameSealed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open account name")
	}
	password, err := s.sealer.Open(cred.PasswordSealed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open password")
	}
	return &Credentials{
		Platform:        cred.Platform,
		AccountName:     string(account),
		Password:        string(password),
		HasSecondFactor: cred.HasSecondFactor,
		IsExpired:       cred.IsExpired,
	}, nil
}
