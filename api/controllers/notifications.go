package controllers

import (
	"net/http"

	"github.com/littlelight-store/backend/api/validators"
	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/pkg/logger"
)

const notificationsService = "notifications service"

// ListNotifications returns the calling client's inbox, newest first.
// ?unreadOnly=true drops read entries.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, notificationsService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		clientID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			ClientID:   clientID,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, notificationsService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		clientID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		notificationID, err := validators.URLParamUUID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), clientID, notificationID); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, notificationsService)
	}
	return serve(logg, http.StatusOK, func(r *http.Request) (any, error) {
		clientID, err := actorIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		updated, err := svc.MarkAllRead(r.Context(), clientID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
