package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/internal/cart"
	"github.com/littlelight-store/backend/internal/catalog"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/ledger"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/internal/profiles"
	"github.com/littlelight-store/backend/internal/promo"
	"github.com/littlelight-store/backend/pkg/config"
	dbpkg "github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/db/dbtest"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/security"
)

type failingLedger struct{}

func (failingLedger) RecordEvent(context.Context, *gorm.DB, ledger.RecordCashbackEventInput) (*models.CashbackEvent, error) {
	return nil, errors.New("ledger unavailable")
}

type fixture struct {
	db     *gorm.DB
	carts  cart.Service
	params ServiceParams
	option models.ServiceConfig
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)

	require.NoError(t, db.Create(&models.Service{
		Slug:              "raid",
		Title:             "Raid",
		ConfigurationType: enums.ConfigurationOptionsSelect,
		BasePrice:         decimal.NewNullDecimal(decimal.NewFromInt(20)),
		BoosterPercent:    50,
	}).Error)
	option := models.ServiceConfig{ID: uuid.New(), ServiceSlug: "raid", Title: "Flawless", Price: decimal.NewFromInt(5), OldPrice: decimal.NewNullDecimal(decimal.NewFromInt(8))}
	require.NoError(t, db.Create(&option).Error)

	promos, err := promo.NewService(promo.NewRepository(db), logger.Nop())
	require.NoError(t, err)
	tx := dbpkg.NewFromGorm(db)
	carts, err := cart.NewService(cart.NewRepository(db), catalog.NewRepository(db), profiles.NewRepository(db), promos, tx, logger.Nop())
	require.NoError(t, err)

	sealer, err := security.NewSealer(config.CredentialsConfig{Secret: "test-secret", Salt: "test-salt"})
	require.NoError(t, err)
	clientsRepo := clients.NewRepository(db)
	clientSvc, err := clients.NewService(clientsRepo, sealer, logger.Nop())
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)

	return fixture{
		db:     db,
		carts:  carts,
		option: option,
		params: ServiceParams{
			Tx:          tx,
			Carts:       cart.NewRepository(db),
			Catalog:     catalog.NewRepository(db),
			Profiles:    profiles.NewRepository(db),
			Orders:      orders.NewRepository(db),
			ClientsRepo: clientsRepo,
			Clients:     clientSvc,
			Promos:      promos,
			Ledger:      ledgerSvc,
			Outbox:      outbox.NewService(outbox.NewRepository(db), logger.Nop()),
			Cashback:    config.CashbackConfig{RewardPercent: 5},
			Logger:      logger.Nop(),
		},
	}
}

func (f fixture) service(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(f.params)
	require.NoError(t, err)
	return svc
}

func (f fixture) seedCart(t *testing.T) uuid.UUID {
	t.Helper()
	view, err := f.carts.AddItem(context.Background(), nil, cart.AddItemInput{
		ServiceSlug:       "raid",
		Profile:           cart.ProfileInput{MembershipID: "4611686018", Platform: enums.PlatformSteam, Username: "guardian"},
		Character:         cart.CharacterInput{CharacterID: "2305843009", CharacterClass: "warlock"},
		SelectedOptionIDs: []uuid.UUID{f.option.ID},
	})
	require.NoError(t, err)
	return view.ID
}

func (f fixture) seedClient(t *testing.T, email string, cashback decimal.Decimal) models.Client {
	t.Helper()
	client := models.Client{ID: uuid.New(), Email: email, Cashback: cashback}
	require.NoError(t, f.db.Create(&client).Error)
	return client
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCartPayedCreatesOrderAndSettlesCashback(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	cartID := f.seedCart(t)
	discord := "guardian#0001"

	res, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:      cartID,
		PaymentID:   "pay_1",
		ClientEmail: "Guardian@Example.com",
		Discord:     &discord,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.ShouldSetCredentials)

	var order models.ClientOrder
	require.NoError(t, f.db.Preload("Objectives").First(&order, "id = ?", res.ClientOrderID).Error)
	assert.Equal(t, enums.ClientOrderStatusAwaitPayment, order.Status)
	assert.Equal(t, enums.PlatformSteam, order.Platform)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(25)), "total %s", order.TotalPrice)
	require.Len(t, order.Objectives, 1)
	assert.True(t, order.Objectives[0].Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, enums.ObjectiveStatusCreated, order.Objectives[0].Status)
	assert.Equal(t, res.ClientID, order.Objectives[0].ClientID)

	var client models.Client
	require.NoError(t, f.db.First(&client, "id = ?", res.ClientID).Error)
	assert.Equal(t, "guardian@example.com", client.Email)
	assert.True(t, client.Cashback.Equal(decimal.RequireFromString("1.25")), "cashback %s", client.Cashback)
	require.NotNil(t, client.Discord)
	assert.Equal(t, discord, *client.Discord)

	var profile models.GameProfile
	require.NoError(t, f.db.First(&profile, "membership_id = ?", "4611686018").Error)
	require.NotNil(t, profile.ClientID)
	assert.Equal(t, res.ClientID, *profile.ClientID)

	assert.Zero(t, f.count(t, &models.ShoppingCart{}))
	assert.Zero(t, f.count(t, &models.ShoppingCartItem{}))

	var events []models.OutboxEvent
	require.NoError(t, f.db.Where("event_type = ?", enums.EventOrderCreated).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateID)

	var ledgerRows []models.CashbackEvent
	require.NoError(t, f.db.Where("client_id = ?", res.ClientID).Find(&ledgerRows).Error)
	require.Len(t, ledgerRows, 1)
	assert.Equal(t, enums.CashbackEarned, ledgerRows[0].Type)
}

func TestCartPayedRedeemsCashback(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	cartID := f.seedCart(t)
	client := f.seedClient(t, "saver@example.com", decimal.NewFromInt(10))

	res, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         cartID,
		PaymentID:      "pay_2",
		ClientEmail:    client.Email,
		CashbackRedeem: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, client.ID, res.ClientID)

	var order models.ClientOrder
	require.NoError(t, f.db.First(&order, "id = ?", res.ClientOrderID).Error)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(20)), "total %s", order.TotalPrice)
	assert.True(t, order.Cashback.Equal(decimal.NewFromInt(5)))

	var stored models.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	// 10 - 5 + 5% of 20
	assert.True(t, stored.Cashback.Equal(decimal.NewFromInt(6)), "cashback %s", stored.Cashback)
	assert.EqualValues(t, 2, f.count(t, &models.CashbackEvent{}))
}

func TestCartPayedRejectsRedeemAboveBalance(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	cartID := f.seedCart(t)
	client := f.seedClient(t, "short@example.com", decimal.NewFromInt(10))

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         cartID,
		PaymentID:      "pay_3",
		ClientEmail:    client.Email,
		CashbackRedeem: decimal.NewFromInt(15),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	assert.Zero(t, f.count(t, &models.ClientOrder{}))
	assert.EqualValues(t, 1, f.count(t, &models.ShoppingCart{}))
	var stored models.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	assert.True(t, stored.Cashback.Equal(decimal.NewFromInt(10)))
}

func TestCartPayedRejectsRedeemAboveTotal(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	cartID := f.seedCart(t)
	client := f.seedClient(t, "rich@example.com", decimal.NewFromInt(100))

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         cartID,
		PaymentID:      "pay_4",
		ClientEmail:    client.Email,
		CashbackRedeem: decimal.NewFromInt(30),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, f.count(t, &models.ClientOrder{}))
}

func TestCartPayedIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.params.Ledger = failingLedger{}
	svc := f.service(t)
	cartID := f.seedCart(t)
	client := f.seedClient(t, "atomic@example.com", decimal.NewFromInt(10))

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         cartID,
		PaymentID:      "pay_5",
		ClientEmail:    client.Email,
		CashbackRedeem: decimal.NewFromInt(5),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Zero(t, f.count(t, &models.ClientOrder{}))
	assert.Zero(t, f.count(t, &models.ClientOrderObjective{}))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}))

	view, err := f.carts.Get(context.Background(), cartID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(25)))

	var stored models.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	assert.True(t, stored.Cashback.Equal(decimal.NewFromInt(10)))

	var profile models.GameProfile
	require.NoError(t, f.db.First(&profile, "membership_id = ?", "4611686018").Error)
	assert.Nil(t, profile.ClientID)
}

func TestCartPayedRejectsReusedPaymentID(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:      f.seedCart(t),
		PaymentID:   "pay_dup",
		ClientEmail: "first@example.com",
	})
	require.NoError(t, err)

	second := f.seedCart(t)
	_, err = svc.CartPayed(context.Background(), CartPayedInput{
		CartID:      second,
		PaymentID:   "pay_dup",
		ClientEmail: "second@example.com",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.False(t, pkgerrors.CodeOf(err).Retryable())

	assert.EqualValues(t, 1, f.count(t, &models.ClientOrder{}))
	view, err := f.carts.Get(context.Background(), second)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCartPayedRejectsFractionalCentRedeem(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	cartID := f.seedCart(t)
	client := f.seedClient(t, "cents@example.com", decimal.NewFromInt(10))

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         cartID,
		PaymentID:      "pay_8",
		ClientEmail:    client.Email,
		CashbackRedeem: decimal.RequireFromString("10.004"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.count(t, &models.ClientOrder{}))

	var stored models.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	assert.True(t, stored.Cashback.Equal(decimal.NewFromInt(10)))
}

func TestCartPayedFreezesPricesInWholeCents(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	ctx := context.Background()

	odd := models.ServiceConfig{ID: uuid.New(), ServiceSlug: "raid", Title: "Master", Price: decimal.RequireFromString("14.99")}
	require.NoError(t, f.db.Create(&odd).Error)
	require.NoError(t, f.db.Create(&models.PromoCode{Code: "FIFTEEN", ServiceSlugs: pq.StringArray{"raid"}, Discount: 15}).Error)

	view, err := f.carts.AddItem(ctx, nil, cart.AddItemInput{
		ServiceSlug:       "raid",
		Profile:           cart.ProfileInput{MembershipID: "4611686018", Platform: enums.PlatformSteam, Username: "guardian"},
		Character:         cart.CharacterInput{CharacterID: "2305843009", CharacterClass: "warlock"},
		SelectedOptionIDs: []uuid.UUID{odd.ID},
	})
	require.NoError(t, err)
	_, err = f.carts.ApplyPromo(ctx, view.ID, "FIFTEEN")
	require.NoError(t, err)

	res, err := svc.CartPayed(ctx, CartPayedInput{CartID: view.ID, PaymentID: "pay_9", ClientEmail: "odd@example.com"})
	require.NoError(t, err)

	// (20 + 14.99) * 0.85 = 29.7415
	want := decimal.RequireFromString("29.74")
	var order models.ClientOrder
	require.NoError(t, f.db.First(&order, "id = ?", res.ClientOrderID).Error)
	assert.True(t, order.TotalPrice.Equal(want), "total %s", order.TotalPrice)
	var objective models.ClientOrderObjective
	require.NoError(t, f.db.First(&objective, "order_id = ?", res.ClientOrderID).Error)
	assert.True(t, objective.Price.Equal(want), "objective price %s", objective.Price)
}

func TestCartPayedMissingCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:      uuid.New(),
		PaymentID:   "pay_6",
		ClientEmail: "ghost@example.com",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.count(t, &models.Client{}))
}

func TestCartPayedValidatesInput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.CartPayed(context.Background(), CartPayedInput{
		CartID:         uuid.New(),
		PaymentID:      "pay_7",
		ClientEmail:    "x@example.com",
		CashbackRedeem: decimal.NewFromInt(-1),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CartPayed(context.Background(), CartPayedInput{CartID: uuid.New(), ClientEmail: "x@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
