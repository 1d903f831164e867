// Package idempotency lets Pub/Sub consumers process each outbox event at
// most once per consumer, even though delivery is at-least-once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the subset of the redis client a Guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfOwner(ctx context.Context, key, owner string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Guard hands out claims on (consumer, event) pairs. A claim survives for ttl;
// afterwards a redelivery of the same event is processed again.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim is held by the delivery that first saw an event.
type Claim struct {
	store Store
	key   string
	token string
}

// Claim reserves eventID for consumer. fresh is false when another delivery
// already holds or completed the claim; the returned Claim is nil then.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (claim *Claim, fresh bool, err error) {
	if consumer == "" {
		return nil, false, errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return nil, false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey("evt:"+consumer, eventID.String())
	token := uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, token, g.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Claim{store: g.store, key: key, token: token}, true, nil
}

// Release gives the event back so a redelivery can retry it. It leaves the key
// alone when the claim already expired and was taken by another delivery.
func (c *Claim) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if _, err := c.store.DeleteIfOwner(ctx, c.key, c.token); err != nil {
		return fmt.Errorf("release claim %s: %w", c.key, err)
	}
	return nil
}
