package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/littlelight-store/backend/api/controllers"
	"github.com/littlelight-store/backend/api/middleware"
	"github.com/littlelight-store/backend/internal/boosters"
	"github.com/littlelight-store/backend/internal/cart"
	checkoutsvc "github.com/littlelight-store/backend/internal/checkout"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/auth"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
)

// redisStore is the slice of the Redis client the HTTP layer needs.
type redisStore interface {
	Ping(ctx context.Context) error
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redisStore
	Tokens        *auth.Signer
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	OrdersRepo    orders.Repository
	Boosters      boosters.Service
	Clients       clients.Service
	Notifications notifications.Service
}

// NewRouter mounts every HTTP route. Mutating routes that clients retry sit in
// groups wrapped by Idempotent.
func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSOrigins),
	)

	idempotent := middleware.Idempotent(p.Redis, middleware.DefaultReplayWindow, logg)
	checkoutLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  cfg.API.CheckoutRateLimit,
		Window: cfg.API.CheckoutRateWindow,
	}, p.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "postgres", Pinger: p.DB},
			controllers.ReadinessCheck{Name: "redis", Pinger: p.Redis},
		))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Get("/{cartId}", controllers.CartGet(p.Cart, logg))
			r.Delete("/{cartId}", controllers.CartDelete(p.Cart, logg))
			r.Delete("/{cartId}/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
			r.Put("/{cartId}/promo", controllers.CartApplyPromo(p.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(checkoutLimit, middleware.Idempotent(p.Redis, middleware.CheckoutReplayWindow, logg))
			r.Post("/checkout", controllers.Checkout(p.Checkout, logg))
		})

		r.Post("/webhooks/payments", controllers.PaymentWebhook(cfg.API.PaymentWebhookSecret, p.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(p.Tokens, logg))

			r.Group(func(r chi.Router) {
				r.Use(idempotent)
				r.Post("/objectives/{objectiveId}/actions", controllers.ObjectiveAction(p.Orders, p.Boosters, logg))
			})

			r.Route("/client", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleClient))
				r.Get("/objectives", controllers.ClientObjectives(p.Orders, logg))
				r.Get("/notifications", controllers.ListNotifications(p.Notifications, logg))
				r.Group(func(r chi.Router) {
					r.Use(idempotent)
					r.Post("/credentials", controllers.SetCredentials(p.Clients, logg))
					r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
					r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
				})
			})

			r.Route("/booster", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleBooster))
				r.Get("/objectives", controllers.BoosterObjectives(p.Orders, p.Boosters, logg))
				r.Get("/objectives/available", controllers.AvailableObjectives(p.Orders, logg))
				r.Get("/objectives/{objectiveId}/credentials", controllers.BoosterCredentials(p.Boosters, p.OrdersRepo, p.Clients, logg))
				r.Group(func(r chi.Router) {
					r.Use(idempotent)
					r.Post("/objectives/{objectiveId}/accept", controllers.BoosterAccept(p.Boosters, logg))
				})
			})
		})
	})

	return r
}
