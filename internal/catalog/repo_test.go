package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/db/dbtest"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func seedCatalog(t *testing.T, repo Repository) (models.Service, []models.ServiceConfig) {
	t.Helper()
	r := repo.(*repository)
	svc := models.Service{
		Slug:              "raid-carry",
		Title:             "Raid carry",
		ConfigurationType: enums.ConfigurationOptionsSelect,
		BasePrice:         decimal.NewNullDecimal(decimal.NewFromInt(20)),
		BoosterPercent:    40,
	}
	require.NoError(t, r.db.Create(&svc).Error)
	configs := []models.ServiceConfig{
		{ID: uuid.New(), ServiceSlug: svc.Slug, Title: "Flawless", Price: decimal.NewFromInt(5), OldPrice: decimal.NewNullDecimal(decimal.NewFromInt(8))},
		{ID: uuid.New(), ServiceSlug: svc.Slug, Title: "Emblem", Price: decimal.NewFromInt(3)},
	}
	require.NoError(t, r.db.Create(&configs).Error)
	return svc, configs
}

func TestGetBySlugPreloadsConfigs(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, configs := seedCatalog(t, repo)

	got, err := repo.GetBySlug(context.Background(), svc.Slug)
	require.NoError(t, err)
	assert.Equal(t, enums.ConfigurationOptionsSelect, got.ConfigurationType)
	assert.True(t, got.BasePrice.Valid)
	assert.True(t, got.BasePrice.Decimal.Equal(decimal.NewFromInt(20)))
	assert.Len(t, got.Configs, len(configs))
}

func TestGetBySlugMissing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.GetBySlug(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListConfigsByIDsKeepsOldPriceOptional(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, configs := seedCatalog(t, repo)

	rows, err := repo.ListConfigsByIDs(context.Background(), []uuid.UUID{configs[1].ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].OldPrice.Valid)

	bySlug, err := repo.ListBySlugs(context.Background(), []string{"raid-carry", "raid-carry", "unknown"})
	require.NoError(t, err)
	assert.Len(t, bySlug, 1)
	assert.Equal(t, 40, bySlug["raid-carry"].BoosterPercent)
}
