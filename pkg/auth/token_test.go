package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/enums"
)

func testSigner(t *testing.T, issuer string) *Signer {
	t.Helper()
	s, err := NewSigner(config.JWTConfig{Secret: "secret", Issuer: issuer, ExpirationMinutes: 30})
	require.NoError(t, err)
	return s
}

func TestMintThenVerify(t *testing.T) {
	s := testSigner(t, "littlelight")
	actorID := uuid.New()
	now := time.Now().UTC()

	token, err := s.Mint(now, actorID, enums.ActorRoleBooster)
	require.NoError(t, err)

	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actorID, id.ActorID)
	assert.Equal(t, enums.ActorRoleBooster, id.Role)
	assert.NotEmpty(t, id.TokenID)
	assert.WithinDuration(t, now.Add(30*time.Minute), id.ExpiresAt, time.Second)
}

func TestMintRejectsInvalidActor(t *testing.T) {
	s := testSigner(t, "littlelight")
	_, err := s.Mint(time.Now(), uuid.Nil, enums.ActorRoleClient)
	assert.Error(t, err)
	_, err = s.Mint(time.Now(), uuid.New(), "owner")
	assert.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	s := testSigner(t, "littlelight")

	expired, err := s.Mint(time.Now().Add(-2*time.Hour), uuid.New(), enums.ActorRoleClient)
	require.NoError(t, err)
	_, err = s.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := testSigner(t, "someone-else").Mint(time.Now(), uuid.New(), enums.ActorRoleClient)
	require.NoError(t, err)
	_, err = s.Verify(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims{Role: enums.ActorRoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = s.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerValidatesConfig(t *testing.T) {
	for _, cfg := range []config.JWTConfig{
		{Issuer: "littlelight", ExpirationMinutes: 1},
		{Secret: "s", ExpirationMinutes: 1},
		{Secret: "s", Issuer: "littlelight"},
	} {
		_, err := NewSigner(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}
