package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/littlelight-store/backend/pkg/bootstrap"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/registry"
	"github.com/littlelight-store/backend/pkg/pubsub"
)

func main() {
	bootstrap.Main("outbox-publisher", bootstrap.NeedDB, run)
}

// run provisions only the topics the event registry routes to.
func run(ctx context.Context, rt *bootstrap.Runtime) error {
	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, pubsub.Resources{Topics: events.Topics()}, rt.Logger)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose("pubsub", client.Close)

	rows := outbox.NewRepository(rt.DB.DB())
	service, err := NewService(ServiceParams{
		Config:      rt.Config,
		Logger:      rt.Logger,
		DB:          rt.DB,
		PubSub:      client,
		Repository:  rows,
		DeadLetters: rows,
		Registry:    events,
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
