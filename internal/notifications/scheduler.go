package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Scheduler turns notification requests into notification_requested outbox
// rows. Schedule is fire-and-forget: it runs after the triggering change has
// committed and only logs failures.
type Scheduler struct {
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewScheduler(tx txRunner, outbox outboxPublisher, logg *logger.Logger) (*Scheduler, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Scheduler{tx: tx, outbox: outbox, logg: logg}, nil
}

func (s *Scheduler) Schedule(ctx context.Context, req Request) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ScheduleTx(ctx, tx, req)
	})
	if err != nil {
		logCtx := s.logg.WithFields(s.logg.WithField(ctx, logger.KeyClientID, req.ClientID), map[string]any{"kind": req.Kind})
		s.logg.Error(logCtx, "failed to schedule notification", err)
	}
}

// ScheduleTx writes the request through the caller's transaction.
func (s *Scheduler) ScheduleTx(ctx context.Context, tx *gorm.DB, req Request) error {
	event, err := req.event()
	if err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Data:          event,
	})
}
