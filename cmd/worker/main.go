package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/bootstrap"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/consumer"
	"github.com/littlelight-store/backend/pkg/outbox/idempotency"
	"github.com/littlelight-store/backend/pkg/pubsub"
	"github.com/littlelight-store/backend/pkg/redis"
	"github.com/littlelight-store/backend/pkg/security"
)

func main() {
	bootstrap.Main("worker", bootstrap.NeedDB|bootstrap.NeedRedis, run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, pubsub.ConsumerResources(rt.Config.PubSub), rt.Logger)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose("pubsub", client.Close)

	service, err := buildService(rt.Config, rt.Logger, rt.DB, rt.Redis, client)
	if err != nil {
		return fmt.Errorf("wire worker: %w", err)
	}
	return service.Run(ctx)
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, pubsubClient *pubsub.Client) (*Service, error) {
	gdb := dbClient.DB()
	ordersRepo := orders.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	guard, err := idempotency.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, err
	}

	sealer, err := security.NewSealer(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	clientsService, err := clients.NewService(clients.NewRepository(gdb), sealer, logg)
	if err != nil {
		return nil, err
	}

	scheduler, err := notifications.NewScheduler(dbClient, outboxService, logg)
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

	broadcaster, err := notifications.NewBroadcaster(ordersRepo, catalog.NewRepository(gdb), scheduler, dbClient, logg)
	if err != nil {
		return nil, err
	}
	consumerMetrics := metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)
	ordersHandler, err := orders.NewEventHandler(ordersService, broadcaster)
	if err != nil {
		return nil, err
	}
	ordersConsumer, err := consumer.New(consumer.Params{
		Name:         orders.ConsumerName,
		Handler:      ordersHandler,
		Subscription: pubsubClient.OrdersSubscription(),
		Guard:        guard,
		Metrics:      consumerMetrics,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(gdb), cfg.Notifications.ExecutorSubscriberIDs, logg)
	if err != nil {
		return nil, err
	}
	notificationsHandler, err := notifications.NewEventHandler(notificationsService)
	if err != nil {
		return nil, err
	}
	notificationConsumer, err := consumer.New(consumer.Params{
		Name:         notifications.ConsumerName,
		Handler:      notificationsHandler,
		Subscription: pubsubClient.NotificationSubscription(),
		Guard:        guard,
		Metrics:      consumerMetrics,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}

	return NewService(ServiceParams{
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		OrdersConsumer:       ordersConsumer,
		NotificationConsumer: notificationConsumer,
	})
}
