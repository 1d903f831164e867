package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

type orderReader interface {
	FindOrderWithObjectives(ctx context.Context, orderID uuid.UUID) (*models.ClientOrder, error)
}

type serviceReader interface {
	ListBySlugs(ctx context.Context, slugs []string) (map[string]models.Service, error)
}

// ObjectiveBroadcast is the executor-facing data of a new objective.
type ObjectiveBroadcast struct {
	ObjectiveID   uuid.UUID       `json:"objective_id"`
	ServiceSlug   string          `json:"service_slug"`
	ServiceTitle  string          `json:"service_title"`
	Platform      enums.Platform  `json:"platform"`
	BoosterPayout decimal.Decimal `json:"booster_payout"`
}

// OrderSummary is the client-facing data of a new order.
type OrderSummary struct {
	OrderNumber uuid.UUID       `json:"order_number"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Objectives  int             `json:"objectives"`
}

// Broadcaster fans a freshly created order out to executors and the client.
type Broadcaster struct {
	orders    orderReader
	services  serviceReader
	scheduler *Scheduler
	tx        txRunner
	logg      *logger.Logger
}

func NewBroadcaster(orders orderReader, services serviceReader, scheduler *Scheduler, tx txRunner, logg *logger.Logger) (*Broadcaster, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if services == nil {
		return nil, fmt.Errorf("service reader required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("notification scheduler required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Broadcaster{orders: orders, services: services, scheduler: scheduler, tx: tx, logg: logg}, nil
}

// BoosterPayout is the booster's cut of an objective price.
func BoosterPayout(price decimal.Decimal, boosterPercent int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(boosterPercent))).Div(hundred).Round(2)
}

// OrderCreatedNotifications schedules one executor notification per
// objective and one client notification per order, all in one transaction.
func (b *Broadcaster) OrderCreatedNotifications(ctx context.Context, orderID uuid.UUID) error {
	order, err := b.orders.FindOrderWithObjectives(ctx, orderID)
	if err != nil {
		return err
	}
	slugs := make([]string, 0, len(order.Objectives))
	for _, obj := range order.Objectives {
		slugs = append(slugs, obj.ServiceSlug)
	}
	services, err := b.services.ListBySlugs(ctx, slugs)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}

	err = b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, obj := range order.Objectives {
			svc := services[obj.ServiceSlug]
			objectiveID := obj.ID
			if err := b.scheduler.ScheduleTx(ctx, tx, Request{
				Kind:        enums.NotificationOrderCreated,
				Audience:    enums.AudienceExecutors,
				ClientID:    order.ClientID,
				OrderID:     &order.ID,
				ObjectiveID: &objectiveID,
				Data: ObjectiveBroadcast{
					ObjectiveID:   obj.ID,
					ServiceSlug:   obj.ServiceSlug,
					ServiceTitle:  svc.Title,
					Platform:      order.Platform,
					BoosterPayout: BoosterPayout(obj.Price, svc.BoosterPercent),
				},
			}); err != nil {
				return err
			}
		}
		return b.scheduler.ScheduleTx(ctx, tx, Request{
			Kind:     enums.NotificationOrderCreated,
			Audience: enums.AudienceClient,
			ClientID: order.ClientID,
			OrderID:  &order.ID,
			Data: OrderSummary{
				OrderNumber: order.CartID,
				TotalPrice:  order.TotalPrice,
				Objectives:  len(order.Objectives),
			},
		})
	})
	if err != nil {
		return fmt.Errorf("schedule order created notifications: %w", err)
	}
	b.logg.Info(b.logg.WithField(ctx, logger.KeyOrderID, orderID), "order created notifications scheduled")
	return nil
}
