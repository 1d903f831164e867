package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/internal/cart"
	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/ledger"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/internal/profiles"
	"github.com/littlelight-store/backend/pkg/config"
	dbpkg "github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

func ErrNotEnoughCashback(clientID uuid.UUID, available, requested decimal.Decimal) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "client %s has not enough cashback", clientID).
		WithDetails(map[string]any{"available": available.StringFixed(2), "requested": requested.StringFixed(2)})
}

func ErrPaymentAlreadyProcessed(paymentID string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "payment %s was already checked out", paymentID).
		WithDetails(map[string]any{"payment_id": paymentID})
}

func ErrCartCashbackNotApplied(total, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cashback exceeds the order total").
		WithDetails(map[string]any{"total": total.StringFixed(2), "requested": requested.StringFixed(2)})
}

const paymentIDIndex = "ux_client_orders_payment_id"

type serializableTxRunner interface {
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type promoLookup interface {
	Lookup(ctx context.Context, code *string) *models.PromoCode
}

type clientResolver interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, email string) (*models.Client, bool, error)
	HasActiveCredentials(ctx context.Context, clientID uuid.UUID, platform enums.Platform) (bool, error)
}

type cashbackRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordCashbackEventInput) (*models.CashbackEvent, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a paid shopping cart into a client order.
type Service interface {
	CartPayed(ctx context.Context, input CartPayedInput) (*Result, error)
}

type CartPayedInput struct {
	CartID         uuid.UUID
	PaymentID      string
	ClientEmail    string
	Discord        *string
	Comment        *string
	CashbackRedeem decimal.Decimal
}

func (in CartPayedInput) validate() error {
	if in.CartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if strings.TrimSpace(in.PaymentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if in.CashbackRedeem.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cashback to redeem must not be negative")
	}
	if !in.CashbackRedeem.Equal(in.CashbackRedeem.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cashback to redeem must be in whole cents").
			WithDetails(map[string]string{"cashback_redeem": in.CashbackRedeem.String()})
	}
	return nil
}

type Result struct {
	ClientOrderID        uuid.UUID `json:"client_order_id"`
	ClientID             uuid.UUID `json:"client_id"`
	Success              bool      `json:"success"`
	ShouldSetCredentials bool      `json:"should_set_credentials"`
}

type ServiceParams struct {
	Tx          serializableTxRunner
	Carts       cart.Repository
	Catalog     catalog.Repository
	Profiles    profiles.Repository
	Orders      orders.Repository
	ClientsRepo clients.Repository
	Clients     clientResolver
	Promos      promoLookup
	Ledger      cashbackRecorder
	Outbox      outboxPublisher
	Cashback    config.CashbackConfig
	Logger      *logger.Logger
}

type service struct {
	tx          serializableTxRunner
	carts       cart.Repository
	catalog     catalog.Repository
	profiles    profiles.Repository
	orders      orders.Repository
	clientsRepo clients.Repository
	clients     clientResolver
	promos      promoLookup
	ledger      cashbackRecorder
	outbox      outboxPublisher
	rewardPct   decimal.Decimal
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case p.Profiles == nil:
		return nil, fmt.Errorf("profiles repository required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.ClientsRepo == nil || p.Clients == nil:
		return nil, fmt.Errorf("clients dependencies required")
	case p.Promos == nil:
		return nil, fmt.Errorf("promo lookup required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("cashback ledger required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:          p.Tx,
		carts:       p.Carts,
		catalog:     p.Catalog,
		profiles:    p.Profiles,
		orders:      p.Orders,
		clientsRepo: p.ClientsRepo,
		clients:     p.Clients,
		promos:      p.Promos,
		ledger:      p.Ledger,
		outbox:      p.Outbox,
		rewardPct:   decimal.NewFromInt(int64(p.Cashback.RewardPercent)),
		logg:        logg,
		now:         time.Now,
	}, nil
}

// CartPayed creates the order, settles cashback, links the cart's game
// profiles to the client and deletes the cart in one serializable
// transaction. Nothing is written when any step fails.
func (s *service) CartPayed(ctx context.Context, input CartPayedInput) (*Result, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "cart_id", input.CartID.String())

	preview, err := s.carts.FindByID(ctx, input.CartID)
	if err != nil {
		return nil, err
	}
	// promo lookup has no transactional variant; a code that disappears
	// between here and commit still prices the order.
	code := s.promos.Lookup(ctx, preview.PromoCode)
	redeem := input.CashbackRedeem

	var (
		order    *models.ClientOrder
		client   *models.Client
		platform enums.Platform
	)
	err = s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		clientsRepo := s.clientsRepo.WithTx(tx)

		record, err := carts.FindByIDForUpdate(ctx, input.CartID)
		if err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		resolved, _, err := s.clients.FindOrCreate(ctx, tx, input.ClientEmail)
		if err != nil {
			return err
		}
		client, err = clientsRepo.LockByID(ctx, resolved.ID)
		if err != nil {
			return err
		}
		if client.Cashback.LessThan(redeem) {
			return ErrNotEnoughCashback(client.ID, client.Cashback, redeem)
		}

		membershipIDs := membershipIDsOf(record.Items)
		linked, err := s.profiles.WithTx(tx).ListByMembershipIDs(ctx, membershipIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load game profiles")
		}
		var platforms []enums.Platform
		platform, platforms, err = profiles.ResolvePlatform(linked)
		if err != nil {
			return err
		}
		if len(platforms) > 1 {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"platforms": platforms,
				"chosen":    platform,
			}), "cart spans several platforms")
		}

		quotes, total, err := cart.QuoteItems(ctx, s.catalog.WithTx(tx), record.Items, code)
		if err != nil {
			return err
		}
		if total.Total.LessThan(redeem) {
			return ErrCartCashbackNotApplied(total.Total, redeem)
		}
		orderTotal := total.Total.Sub(redeem)

		now := s.now().UTC()
		order = buildOrder(record, client.ID, input, platform, code, quotes, orderTotal, redeem, now)
		if err := s.orders.WithTx(tx).CreateOrder(ctx, order); err != nil {
			if isDuplicatePayment(err) {
				return ErrPaymentAlreadyProcessed(order.PaymentID)
			}
			if pkgerrors.As(err) == nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client order")
			}
			return err
		}

		earned := orderTotal.Mul(s.rewardPct).Div(decimal.NewFromInt(100)).Round(2)
		for _, movement := range []struct {
			kind   enums.CashbackEventType
			amount decimal.Decimal
		}{
			{enums.CashbackRedeemed, redeem},
			{enums.CashbackEarned, earned},
		} {
			if !movement.amount.IsPositive() {
				continue
			}
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordCashbackEventInput{
				OrderID:  order.ID,
				ClientID: client.ID,
				Type:     movement.kind,
				Amount:   movement.amount,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cashback movement")
			}
		}

		client.Cashback = client.Cashback.Sub(redeem).Add(earned)
		if err := clientsRepo.UpdateCashback(ctx, client.ID, client.Cashback); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client cashback")
		}
		if input.Discord != nil && strings.TrimSpace(*input.Discord) != "" {
			if err := clientsRepo.UpdateDiscord(ctx, client.ID, strings.TrimSpace(*input.Discord)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client discord")
			}
		}
		if _, err := s.profiles.WithTx(tx).LinkToClient(ctx, membershipIDs, client.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link game profiles")
		}

		if err := carts.Delete(ctx, record.ID); err != nil {
			return err
		}
		return s.emitOrderCreated(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.With(ctx, logger.KeyClientID, client.ID, logger.KeyOrderID, order.ID)
	s.logg.Info(ctx, "client order created")

	hasCredentials, err := s.clients.HasActiveCredentials(ctx, client.ID, platform)
	if err != nil {
		s.logg.Error(ctx, "check client credentials", err)
		hasCredentials = false
	}
	return &Result{
		ClientOrderID:        order.ID,
		ClientID:             client.ID,
		Success:              true,
		ShouldSetCredentials: !hasCredentials,
	}, nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.ClientOrder) error {
	objectiveIDs := make([]uuid.UUID, 0, len(order.Objectives))
	for _, objective := range order.Objectives {
		objectiveIDs = append(objectiveIDs, objective.ID)
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateClientOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:      order.ID,
			CartID:       order.CartID,
			ClientID:     order.ClientID,
			ObjectiveIDs: objectiveIDs,
			TotalPrice:   order.TotalPrice,
			Platform:     order.Platform,
		},
		Version: 1,
	})
}

func buildOrder(
	record *models.ShoppingCart,
	clientID uuid.UUID,
	input CartPayedInput,
	platform enums.Platform,
	code *models.PromoCode,
	quotes []cart.ItemQuote,
	total, redeem decimal.Decimal,
	now time.Time,
) *models.ClientOrder {
	order := &models.ClientOrder{
		CartID:          record.ID,
		ClientID:        clientID,
		PaymentID:       strings.TrimSpace(input.PaymentID),
		Status:          enums.ClientOrderStatusAwaitPayment,
		TotalPrice:      total,
		Cashback:        redeem,
		Platform:        platform,
		Comment:         input.Comment,
		StatusChangedAt: now,
	}
	if code != nil {
		applied := code.Code
		order.PromoCode = &applied
	}
	order.Objectives = make([]models.ClientOrderObjective, 0, len(quotes))
	for _, q := range quotes {
		order.Objectives = append(order.Objectives, models.ClientOrderObjective{
			ServiceSlug:       q.Item.ServiceSlug,
			GameProfileID:     q.Item.GameProfileID,
			CharacterID:       q.Item.CharacterID,
			SelectedOptionIDs: q.Item.SelectedOptionIDs,
			RangeOptions:      q.Item.RangeOptions,
			Price:             q.Effective.Total,
			Status:            enums.ObjectiveStatusCreated,
			StatusChangedAt:   now,
		})
	}
	return order
}

// isDuplicatePayment matches the payment id unique index by name on Postgres
// and by column on SQLite.
func isDuplicatePayment(err error) bool {
	return dbpkg.IsUniqueViolation(err, paymentIDIndex) || dbpkg.IsUniqueViolation(err, "client_orders.payment_id")
}

func membershipIDsOf(items []models.ShoppingCartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.GameProfileID]; ok {
			continue
		}
		seen[item.GameProfileID] = struct{}{}
		ids = append(ids, item.GameProfileID)
	}
	return ids
}
