package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/db/dbtest"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
)

func TestFindProfile(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	booster := models.User{ID: uuid.New(), Email: "ghost@boost.gg", Username: "ghost", Role: enums.ActorRoleBooster}
	client := models.User{ID: uuid.New(), Email: "guardian@mail.gg", Username: "guardian", Role: enums.ActorRoleClient}
	require.NoError(t, db.Create(&booster).Error)
	require.NoError(t, db.Create(&client).Error)
	profile := models.Booster{ID: uuid.New(), UserID: booster.ID, Username: "ghost"}
	require.NoError(t, db.Create(&profile).Error)

	found, err := repo.FindProfile(ctx, booster.ID)
	require.NoError(t, err)
	require.True(t, found.IsBooster())
	assert.Equal(t, profile.ID, found.Booster.ID)
	assert.Equal(t, booster.Email, found.User.Email)

	found, err = repo.FindProfile(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.IsBooster())

	found, err = repo.FindProfile(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.False(t, found.IsBooster())
}
