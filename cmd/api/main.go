package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/littlelight-store/backend/api/routes"
	"github.com/littlelight-store/backend/internal/boosters"
	"github.com/littlelight-store/backend/internal/cart"
	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/checkout"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/ledger"
	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/internal/profiles"
	"github.com/littlelight-store/backend/internal/promo"
	"github.com/littlelight-store/backend/internal/users"
	"github.com/littlelight-store/backend/pkg/auth"
	"github.com/littlelight-store/backend/pkg/bootstrap"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/redis"
	"github.com/littlelight-store/backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootstrap.Main("api", bootstrap.NeedDB|bootstrap.NeedRedis, run)
}

// run serves until ctx is canceled, then drains in-flight requests for up to
// shutdownTimeout.
func run(ctx context.Context, rt *bootstrap.Runtime) error {
	params, err := buildRouterParams(rt.Config, rt.Logger, rt.DB, rt.Redis)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	// PORT is injected by Cloud Run and wins over the configured port.
	port := os.Getenv("PORT")
	if port == "" {
		port = rt.Config.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(*params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.Logger.Info(rt.Logger.WithField(ctx, "addr", server.Addr), "listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildRouterParams(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*routes.RouterParams, error) {
	gdb := dbClient.DB()

	tokens, err := auth.NewSigner(cfg.JWT)
	if err != nil {
		return nil, err
	}

	catalogRepo := catalog.NewRepository(gdb)
	profilesRepo := profiles.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	clientsRepo := clients.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	promos, err := promo.NewService(promo.NewRepository(gdb), logg)
	if err != nil {
		return nil, err
	}
	cartService, err := cart.NewService(cart.NewRepository(gdb), catalogRepo, profilesRepo, promos, dbClient, logg)
	if err != nil {
		return nil, err
	}

	sealer, err := security.NewSealer(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	clientsService, err := clients.NewService(clientsRepo, sealer, logg)
	if err != nil {
		return nil, err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		return nil, err
	}

	scheduler, err := notifications.NewScheduler(dbClient, outboxService, logg)
	if err != nil {
		return nil, err
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(gdb), cfg.Notifications.ExecutorSubscriberIDs, logg)
	if err != nil {
		return nil, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		Notifier:    scheduler,
		Credentials: clientsService,
		Metrics:     metrics.NewObjectiveMetrics(prometheus.DefaultRegisterer),
		Config:      cfg.Orders,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}
	boostersService, err := boosters.NewService(users.NewRepository(gdb), ordersService, logg)
	if err != nil {
		return nil, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:          dbClient,
		Carts:       cart.NewRepository(gdb),
		Catalog:     catalogRepo,
		Profiles:    profilesRepo,
		Orders:      ordersRepo,
		ClientsRepo: clientsRepo,
		Clients:     clientsService,
		Promos:      promos,
		Ledger:      ledgerService,
		Outbox:      outboxService,
		Cashback:    cfg.Cashback,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	return &routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Tokens:        tokens,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		OrdersRepo:    ordersRepo,
		Boosters:      boostersService,
		Clients:       clientsService,
		Notifications: notificationsService,
	}, nil
}
