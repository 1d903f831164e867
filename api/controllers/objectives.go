package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/middleware"
	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/pagination"
)

type objectiveDispatcher interface {
	Dispatch(ctx context.Context, input orders.DispatchInput) (*models.ClientOrderObjective, error)
}

type objectiveLister interface {
	ListClientObjectives(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*orders.ObjectiveList, error)
	ListBoosterObjectives(ctx context.Context, boosterID uuid.UUID, params pagination.Params) (*orders.ObjectiveList, error)
	ListAvailableObjectives(ctx context.Context, params pagination.Params) (*orders.ObjectiveList, error)
}

type boosterResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*models.Booster, error)
}

type objectiveActionRequest struct {
	Action string `json:"action" validate:"required"`
}

const ordersService = "orders service"

// ObjectiveAction runs a client or booster command against one objective.
// Booster tokens carry the user id, so the booster profile is resolved first.
func ObjectiveAction(svc objectiveDispatcher, boosters boosterResolver, logg *logger.Logger) http.HandlerFunc {
	if svc == nil || boosters == nil {
		return unavailable(logg, ordersService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		objectiveID, err := validators.URLParamUUID(r, "objectiveId")
		if err != nil {
			return nil, err
		}
		var payload objectiveActionRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		action, err := enums.ParseObjectiveAction(payload.Action)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		actor, err := resolveActor(r, boosters)
		if err != nil {
			return nil, err
		}
		return svc.Dispatch(r.Context(), orders.DispatchInput{
			Action:      action,
			ObjectiveID: objectiveID,
			Actor:       actor,
		})
	})
}

func resolveActor(r *http.Request, boosters boosterResolver) (orders.Actor, error) {
	actorID, err := actorIDFromRequest(r)
	if err != nil {
		return orders.Actor{}, err
	}
	role := middleware.RoleFromContext(r.Context())
	if role != enums.ActorRoleBooster {
		return orders.Actor{Role: role, ID: actorID}, nil
	}
	booster, err := boosters.Resolve(r.Context(), actorID)
	if err != nil {
		return orders.Actor{}, err
	}
	return orders.Actor{Role: role, ID: booster.ID}, nil
}

// ClientObjectives lists the objectives of the authenticated client.
func ClientObjectives(svc objectiveLister, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, ordersService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		clientID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		return svc.ListClientObjectives(r.Context(), clientID, params)
	})
}

// BoosterObjectives lists the objectives assigned to the calling booster.
func BoosterObjectives(svc objectiveLister, boosters boosterResolver, logg *logger.Logger) http.HandlerFunc {
	if svc == nil || boosters == nil {
		return unavailable(logg, ordersService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		booster, err := boosters.Resolve(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return svc.ListBoosterObjectives(r.Context(), booster.ID, params)
	})
}

// AvailableObjectives lists unassigned objectives boosters may accept.
func AvailableObjectives(svc objectiveLister, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, ordersService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		return svc.ListAvailableObjectives(r.Context(), params)
	})
}
