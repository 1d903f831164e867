// Package consumer runs the shared side of an outbox subscription: envelope
// decoding, payload validation, at-most-once claims and ack/nack. Domain
// packages only supply a Handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/idempotency"
	"github.com/littlelight-store/backend/pkg/outbox/registry"
)

// Handler reacts to decoded payloads of the event types it lists.
type Handler interface {
	Events() []enums.OutboxEventType
	Handle(ctx context.Context, eventID uuid.UUID, payload any) error
}

// Filter is implemented by handlers that ignore some payloads of an accepted
// event type. Ignored events are acked without claiming them.
type Filter interface {
	Ignore(payload any) bool
}

// Verdict is the fate of one delivery.
type Verdict bool

const (
	Ack  Verdict = true
	Nack Verdict = false
)

type Params struct {
	Name         string
	Handler      Handler
	Subscription *pubsub.Subscriber
	Guard        *idempotency.Guard
	Metrics      *metrics.ConsumerMetrics
	Logger       *logger.Logger
}

type Consumer struct {
	name         string
	handler      Handler
	subscription *pubsub.Subscriber
	guard        *idempotency.Guard
	decoders     *registry.Decoders
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// New validates params. Subscription may be nil for callers that feed
// Process directly; Run then fails.
func New(p Params) (*Consumer, error) {
	switch {
	case p.Name == "":
		return nil, errors.New("consumer name required")
	case p.Handler == nil:
		return nil, fmt.Errorf("%s: handler required", p.Name)
	case p.Guard == nil:
		return nil, fmt.Errorf("%s: idempotency guard required", p.Name)
	case p.Logger == nil:
		return nil, fmt.Errorf("%s: logger required", p.Name)
	}
	return &Consumer{
		name:         p.Name,
		handler:      p.Handler,
		subscription: p.Subscription,
		guard:        p.Guard,
		decoders:     registry.NewConsumerDecoders(),
		metrics:      p.Metrics,
		logg:         p.Logger,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("%s: no subscription", c.name)
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg) == Ack {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one delivery. Malformed messages are acked because a
// redelivery cannot fix them; handler and claim-store failures are nacked.
func (c *Consumer) Process(ctx context.Context, msg *pubsub.Message) Verdict {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	ctx = c.logg.WithFields(ctx, map[string]any{
		"consumer":   c.name,
		"message_id": msg.ID,
		"event_type": eventType,
	})
	verdict, outcome := c.process(ctx, eventType, msg.Data)
	c.metrics.Observe(c.name, string(eventType), outcome)
	return verdict
}

func (c *Consumer) process(ctx context.Context, eventType enums.OutboxEventType, data []byte) (Verdict, string) {
	if !slices.Contains(c.handler.Events(), eventType) {
		c.logg.Debug(ctx, "event not handled here")
		return Ack, metrics.MessageSkipped
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(ctx, "undecodable envelope", err)
		return Ack, metrics.MessageRejected
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(ctx, "envelope carries an invalid event id", err)
		return Ack, metrics.MessageRejected
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(ctx, "payload rejected", err)
		return Ack, metrics.MessageRejected
	}
	if f, ok := c.handler.(Filter); ok && f.Ignore(payload) {
		return Ack, metrics.MessageSkipped
	}

	claim, fresh, err := c.guard.Claim(ctx, c.name, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency claim failed", err)
		return Nack, metrics.MessageRetried
	}
	if !fresh {
		c.logg.Info(ctx, "event already processed")
		return Ack, metrics.MessageDuplicate
	}

	if err := c.handler.Handle(ctx, eventID, payload); err != nil {
		c.logg.Error(ctx, "event handling failed", err)
		if relErr := claim.Release(context.WithoutCancel(ctx)); relErr != nil {
			c.logg.Error(ctx, "release idempotency claim", relErr)
		}
		return Nack, metrics.MessageRetried
	}
	return Ack, metrics.MessageHandled
}
