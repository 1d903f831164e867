package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/internal/catalog"
	dbpkg "github.com/littlelight-store/backend/pkg/db"
	"github.com/littlelight-store/backend/pkg/db/dbtest"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
)

type stubOrderReader struct {
	order *models.ClientOrder
}

func (s stubOrderReader) FindOrderWithObjectives(context.Context, uuid.UUID) (*models.ClientOrder, error) {
	return s.order, nil
}

func TestBoosterPayoutRoundsToCents(t *testing.T) {
	assert.Equal(t, "17.5", BoosterPayout(decimal.RequireFromString("25"), 70).String())
	assert.Equal(t, "3.33", BoosterPayout(decimal.RequireFromString("11.1"), 30).String())
}

func TestOrderCreatedNotificationsSchedulesPerObjectiveAndPerOrder(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Service{
		Slug:              "raid",
		Title:             "Raid carry",
		ConfigurationType: enums.ConfigurationOptionsSelect,
		BoosterPercent:    60,
	}).Error)

	clientID := uuid.New()
	order := &models.ClientOrder{
		ID:         uuid.New(),
		CartID:     uuid.New(),
		ClientID:   clientID,
		TotalPrice: decimal.RequireFromString("50"),
		Platform:   enums.PlatformSteam,
		Objectives: []models.ClientOrderObjective{
			{ID: uuid.New(), ServiceSlug: "raid", Price: decimal.RequireFromString("20")},
			{ID: uuid.New(), ServiceSlug: "raid", Price: decimal.RequireFromString("30")},
		},
	}

	emitter := outbox.NewService(outbox.NewRepository(db), logger.Nop())
	runner := dbpkg.NewFromGorm(db)
	scheduler, err := NewScheduler(runner, emitter, logger.Nop())
	require.NoError(t, err)
	broadcaster, err := NewBroadcaster(stubOrderReader{order: order}, catalog.NewRepository(db), scheduler, runner, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, broadcaster.OrderCreatedNotifications(ctx, order.ID))

	var rows []models.OutboxEvent
	require.NoError(t, db.Where("event_type = ?", enums.EventNotificationRequested).Find(&rows).Error)
	require.Len(t, rows, 3)

	audiences := map[enums.NotificationAudience]int{}
	payouts := []string{}
	for _, row := range rows {
		envelope, err := outbox.DecodeEnvelope(row.Payload)
		require.NoError(t, err)
		var event payloads.NotificationRequestedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &event))
		assert.Equal(t, clientID, event.ClientID)
		assert.Equal(t, enums.NotificationOrderCreated, event.Kind)
		audiences[event.Audience]++
		if event.Audience == enums.AudienceExecutors {
			var data ObjectiveBroadcast
			require.NoError(t, json.Unmarshal(event.Data, &data))
			assert.Equal(t, "Raid carry", data.ServiceTitle)
			payouts = append(payouts, data.BoosterPayout.String())
		}
	}
	assert.Equal(t, 2, audiences[enums.AudienceExecutors])
	assert.Equal(t, 1, audiences[enums.AudienceClient])
	assert.ElementsMatch(t, []string{"12", "18"}, payouts)
}
