package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/internal/cart"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/types"
)

type cartProfileRequest struct {
	MembershipID string `json:"membership_id" validate:"required,max=64"`
	Platform     string `json:"platform" validate:"required"`
	Username     string `json:"username" validate:"max=128"`
}

type cartCharacterRequest struct {
	CharacterID    string `json:"character_id" validate:"required,max=64"`
	CharacterClass string `json:"character_class" validate:"max=32"`
}

type cartAddItemRequest struct {
	CartID            *uuid.UUID           `json:"cart_id,omitempty"`
	ServiceSlug       string               `json:"service_slug" validate:"required,max=128"`
	Profile           cartProfileRequest   `json:"profile"`
	Character         cartCharacterRequest `json:"character"`
	SelectedOptionIDs []uuid.UUID          `json:"selected_option_ids"`
	RangeOptions      *types.RangeOptions  `json:"range_options,omitempty"`
}

type cartPromoRequest struct {
	Code string `json:"code" validate:"max=64"`
}

const cartService = "cart service"

// CartAddItem adds a line to the cart named by cart_id, creating it when absent.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, cartService)
	}
	return serve(logg, http.StatusCreated, func(r *http.Request) (any, error) {
		var payload cartAddItemRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		platform, err := parsePlatform(payload.Profile.Platform)
		if err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), payload.CartID, cart.AddItemInput{
			ServiceSlug: validators.SanitizeString(payload.ServiceSlug, 128),
			Profile: cart.ProfileInput{
				MembershipID: validators.SanitizeString(payload.Profile.MembershipID, 64),
				Platform:     platform,
				Username:     validators.SanitizeString(payload.Profile.Username, 128),
			},
			Character: cart.CharacterInput{
				CharacterID:    validators.SanitizeString(payload.Character.CharacterID, 64),
				CharacterClass: validators.SanitizeString(payload.Character.CharacterClass, 32),
			},
			SelectedOptionIDs: payload.SelectedOptionIDs,
			RangeOptions:      payload.RangeOptions,
		})
	})
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, cartService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		cartID, err := validators.URLParamUUID(r, "cartId")
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), cartID)
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, cartService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		cartID, err := validators.URLParamUUID(r, "cartId")
		if err != nil {
			return nil, err
		}
		itemID, err := validators.URLParamUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), cartID, itemID)
	})
}

// CartApplyPromo attaches a promo code. An empty code clears it.
func CartApplyPromo(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, cartService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		cartID, err := validators.URLParamUUID(r, "cartId")
		if err != nil {
			return nil, err
		}
		var payload cartPromoRequest
		if err := validators.DecodeJSONBody(nil, r, &payload); err != nil {
			return nil, err
		}
		return svc.ApplyPromo(r.Context(), cartID, validators.SanitizeString(payload.Code, 64))
	})
}

func CartDelete(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, cartService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		cartID, err := validators.URLParamUUID(r, "cartId")
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(r.Context(), cartID); err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": true}, nil
	})
}
