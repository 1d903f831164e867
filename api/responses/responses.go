package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/types"
)

const requestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto the public error envelope. Untyped errors become
// INTERNAL_ERROR and their text never reaches the caller.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	code := typed.Code()

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(code),
			Message:   publicMessage(typed),
			Retryable: code.Retryable(),
			RequestID: w.Header().Get(requestIDHeader),
		},
	}
	if code.DetailsAllowed() {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.LogFields(err)
		fields["status"] = code.HTTPStatus()
		ctx = logg.WithFields(ctx, fields)
		if code.HTTPStatus() >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, code.HTTPStatus(), payload)
}

func publicMessage(typed *pkgerrors.Error) string {
	code := typed.Code()
	if code == pkgerrors.CodeInternal || code == pkgerrors.CodeDependency || typed.Message() == "" {
		return code.PublicMessage()
	}
	return typed.Message()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
