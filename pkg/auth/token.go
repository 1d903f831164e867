// Package auth issues and verifies the HS256 access tokens carried by clients,
// boosters and admins. The subject is the actor id; for clients that is the
// client id, for boosters and admins the user id.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var ErrInvalidToken = errors.New("invalid access token")

type claims struct {
	Role enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts.
type Identity struct {
	ActorID   uuid.UUID
	Role      enums.ActorRole
	TokenID   string
	ExpiresAt time.Time
}

type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewSigner(cfg config.JWTConfig) (*Signer, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case strings.TrimSpace(cfg.Issuer) == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	return &Signer{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Mint signs a token for actorID valid from now for the configured TTL.
func (s *Signer) Mint(now time.Time, actorID uuid.UUID, role enums.ActorRole) (string, error) {
	if actorID == uuid.Nil {
		return "", errors.New("actor id is required")
	}
	if !role.IsValid() {
		return "", fmt.Errorf("invalid actor role %q", role)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry. Every failure wraps
// ErrInvalidToken; the jwt sentinel (jwt.ErrTokenExpired and friends) stays
// reachable through errors.Is.
func (s *Signer) Verify(raw string) (Identity, error) {
	var c claims
	if _, err := s.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.key, nil }); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	actorID, err := uuid.Parse(c.Subject)
	if err != nil || actorID == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if !c.Role.IsValid() {
		return Identity{}, fmt.Errorf("%w: role %q", ErrInvalidToken, c.Role)
	}
	return Identity{
		ActorID:   actorID,
		Role:      c.Role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
