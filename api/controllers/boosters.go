package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

type objectiveAccepter interface {
	Accept(ctx context.Context, objectiveID, userID uuid.UUID) (*models.ClientOrderObjective, error)
}

type objectiveReader interface {
	FindObjective(ctx context.Context, objectiveID uuid.UUID) (*models.ClientOrderObjective, error)
	FindOrderWithObjectives(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error)
}

type credentialRevealer interface {
	RevealCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (*clients.Credentials, error)
}

var _ objectiveReader = (orders.Repository)(nil)

// BoosterAccept assigns an available objective to the calling booster.
func BoosterAccept(svc objectiveAccepter, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "booster service")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		objectiveID, err := validators.URLParamUUID(r, "objectiveId")
		if err != nil {
			return nil, err
		}
		return svc.Accept(r.Context(), objectiveID, userID)
	})
}

// BoosterCredentials reveals the client's game credentials to the booster
// assigned to the objective. Anyone else gets FORBIDDEN.
func BoosterCredentials(boosters boosterResolver, objectives objectiveReader, creds credentialRevealer, logg *logger.Logger) http.HandlerFunc {
	if boosters == nil || objectives == nil || creds == nil {
		return unavailable(logg, "credentials")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		objectiveID, err := validators.URLParamUUID(r, "objectiveId")
		if err != nil {
			return nil, err
		}
		booster, err := boosters.Resolve(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		objective, err := objectives.FindObjective(r.Context(), objectiveID)
		if err != nil {
			return nil, err
		}
		if objective.BoosterID == nil || *objective.BoosterID != booster.ID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "objective is not assigned to this booster")
		}
		order, err := objectives.FindOrderWithObjectives(r.Context(), objective.OrderID)
		if err != nil {
			return nil, err
		}
		credentials, err := creds.RevealCredentials(r.Context(), order.ClientID, order.Platform)
		if err != nil {
			return nil, err
		}
		logg.Info(logg.With(r.Context(), logger.KeyObjectiveID, objectiveID, logger.KeyBoosterID, booster.ID), "client credentials revealed to booster")
		return credentials, nil
	})
}
