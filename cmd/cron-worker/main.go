package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/cron"
	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/bootstrap"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/security"
)

func main() {
	bootstrap.Main("cron-worker", bootstrap.NeedDB|bootstrap.NeedRedis, run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	registry, err := buildRegistry(rt.Config, rt.Logger, rt.DB)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(rt.Redis, lockName(rt.Config.App.Env), rt.Config.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     rt.Logger,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   rt.Config.Cron.Interval,
		JobTimeout: rt.Config.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	outboxService := outbox.NewService(outboxRepo, logg)

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
		Repo:        orders.NewRepository(gdb),
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

	autoAccept, err := cron.NewAutoAcceptJob(cron.AutoAcceptJobParams{Logger: logg, Orders: ordersService})
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		Purge:     cron.OutboxPurge(dbClient, outboxRepo),
		Retention: cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}
	notificationCleanup, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "notification-cleanup",
		Logger:    logg,
		Purge:     notifications.NewRepository(gdb).DeleteReadBefore,
		Retention: cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(autoAccept, outboxRetention, notificationCleanup), nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
