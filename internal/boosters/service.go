package boosters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/internal/users"
	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

func ErrBoosterNotExists(userID uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "booster %s does not exist", userID)
}

func ErrUserIsNotBooster(userID uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "user %s is not a booster", userID)
}

type profileReader interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*users.Profile, error)
}

type objectiveClaimer interface {
	Claim(ctx context.Context, objectiveID, boosterID uuid.UUID) (*models.ClientOrderObjective, error)
}

// Service resolves boosters from authenticated users and lets them claim
// objectives.
type Service interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*models.Booster, error)
	Accept(ctx context.Context, objectiveID, userID uuid.UUID) (*models.ClientOrderObjective, error)
}

type service struct {
	users  profileReader
	orders objectiveClaimer
	logg   *logger.Logger
}

func NewService(users profileReader, orders objectiveClaimer, logg *logger.Logger) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{users: users, orders: orders, logg: logg}, nil
}

// Resolve maps a user id onto its booster profile.
func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*models.Booster, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.users.FindProfile(ctx, userID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user profile")
	case profile == nil:
		return nil, ErrBoosterNotExists(userID)
	case !profile.IsBooster():
		return nil, ErrUserIsNotBooster(userID)
	}
	return profile.Booster, nil
}

// Accept assigns the objective to the booster behind userID. A booster that
// loses the race gets an ALREADY_IN_PROGRESS error and nothing changes.
func (s *service) Accept(ctx context.Context, objectiveID, userID uuid.UUID) (*models.ClientOrderObjective, error) {
	booster, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	objective, err := s.orders.Claim(ctx, objectiveID, booster.ID)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.With(ctx, logger.KeyObjectiveID, objectiveID, logger.KeyBoosterID, booster.ID)
	s.logg.Info(logCtx, "objective accepted by booster")
	return objective, nil
}
