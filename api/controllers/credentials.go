package controllers

import (
	"context"
	"net/http"

	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/pkg/logger"
)

type credentialSetter interface {
	SetCredentials(ctx context.Context, input clients.SetCredentialsInput) error
}

type setCredentialsRequest struct {
	Platform        string `json:"platform" validate:"required"`
	AccountName     string `json:"account_name" validate:"required,max=256"`
	Password        string `json:"password" validate:"required,max=256"`
	HasSecondFactor bool   `json:"has_second_factor"`
}

// SetCredentials stores the client's game credentials for one platform.
func SetCredentials(svc credentialSetter, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "clients service")
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		clientID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		var payload setCredentialsRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		platform, err := parsePlatform(payload.Platform)
		if err != nil {
			return nil, err
		}
		err = svc.SetCredentials(r.Context(), clients.SetCredentialsInput{
			ClientID:        clientID,
			Platform:        platform,
			AccountName:     payload.AccountName,
			Password:        payload.Password,
			HasSecondFactor: payload.HasSecondFactor,
		})
		if err != nil {
			return nil, err
		}
		return map[string]bool{"saved": true}, nil
	})
}
