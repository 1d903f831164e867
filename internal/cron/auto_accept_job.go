package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/littlelight-store/backend/pkg/logger"
)

type autoAccepter interface {
	AutoAcceptPendingApproval(ctx context.Context, now time.Time) (int, error)
}

type AutoAcceptJobParams struct {
	Logger *logger.Logger
	Orders autoAccepter
}

// NewAutoAcceptJob completes objectives whose approval window has elapsed.
func NewAutoAcceptJob(params AutoAcceptJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &autoAcceptJob{logg: params.Logger, orders: params.Orders, now: time.Now}, nil
}

type autoAcceptJob struct {
	logg   *logger.Logger
	orders autoAccepter
	now    func() time.Time
}

func (j *autoAcceptJob) Name() string { return "objective-auto-accept" }

// Run reports partial failures after the objectives that could be accepted
// have been committed.
func (j *autoAcceptJob) Run(ctx context.Context) error {
	accepted, err := j.orders.AutoAcceptPendingApproval(ctx, j.now().UTC())
	logCtx := j.logg.WithField(ctx, "accepted", accepted)
	if err != nil {
		return fmt.Errorf("auto accept: %w", err)
	}
	j.logg.Info(logCtx, "pending approval objectives auto accepted")
	return nil
}
