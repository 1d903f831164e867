package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/middleware"
	"github.com/littlelight-store/backend/api/responses"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

func writeUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeInternal, "%s unavailable", name))
}

func parsePlatform(raw string) (enums.Platform, error) {
	platform, err := enums.ParsePlatform(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).WithDetails(map[string]string{"platform": "is not a known platform"})
	}
	return platform, nil
}

func actorIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id := middleware.ActorIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor missing from context")
	}
	return id, nil
}

// endpoint returns the payload for the success envelope or an error for the
// error envelope.
type endpoint func(r *http.Request) (any, error)

func serve(logg *logger.Logger, status int, fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, data)
	}
}

func unavailable(logg *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeUnavailable(w, r, logg, name)
	}
}
