package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/api/validators"
	checkoutsvc "github.com/littlelight-store/backend/internal/checkout"
	"github.com/littlelight-store/backend/pkg/logger"
)

type checkoutRequest struct {
	CartID         uuid.UUID        `json:"cart_id" validate:"required"`
	PaymentID      string           `json:"payment_id" validate:"required,max=128"`
	ClientEmail    string           `json:"client_email" validate:"required,email,max=254"`
	Discord        *string          `json:"discord,omitempty" validate:"omitempty,max=64"`
	Comment        *string          `json:"comment,omitempty" validate:"omitempty,max=2000"`
	CashbackRedeem *decimal.Decimal `json:"cashback_redeem,omitempty"`
}

// Checkout turns a paid cart into a client order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "checkout service")
	}
	return serve(logg, http.StatusCreated, func(r *http.Request) (any, error) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		input := checkoutsvc.CartPayedInput{
			CartID:      payload.CartID,
			PaymentID:   strings.TrimSpace(payload.PaymentID),
			ClientEmail: strings.ToLower(strings.TrimSpace(payload.ClientEmail)),
			Discord:     trimmedOrNil(payload.Discord, 64),
			Comment:     trimmedOrNil(payload.Comment, 2000),
		}
		if payload.CashbackRedeem != nil {
			input.CashbackRedeem = *payload.CashbackRedeem
		}
		return svc.CartPayed(r.Context(), input)
	})
}

func trimmedOrNil(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	trimmed := validators.SanitizeString(*value, maxLen)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
