package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/pkg/db/models"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

const webhookSecretHeader = "X-Webhook-Secret"

type paymentCallbackProcessor interface {
	ProcessPaymentCallback(ctx context.Context, cartID uuid.UUID) (*models.ClientOrder, error)
}

type paymentWebhookRequest struct {
	CartID uuid.UUID `json:"cart_id" validate:"required"`
}

// PaymentWebhook confirms payment of the order built from cart_id. The caller
// authenticates with the shared secret header; an empty secret disables the
// endpoint.
func PaymentWebhook(secret string, svc paymentCallbackProcessor, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, ordersService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		provided := r.Header.Get(webhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret")
		}
		var payload paymentWebhookRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		order, err := svc.ProcessPaymentCallback(r.Context(), payload.CartID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"order_id": order.ID,
			"status":   order.Status,
		}, nil
	})
}
