package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/api/responses"
	"github.com/littlelight-store/backend/pkg/auth"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

type actorKey struct{}

type tokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

func WithActor(ctx context.Context, id uuid.UUID, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, Actor{ID: id, Role: role})
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// ActorIDFromContext returns uuid.Nil for anonymous requests.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	a, _ := ActorFrom(ctx)
	return a.ID
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	a, _ := ActorFrom(ctx)
	return a.Role
}

// Auth admits requests with a valid bearer token and records the actor on the
// context and on every log line of the request.
func Auth(tokens tokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				challenge(w, "")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				challenge(w, "invalid_token")
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			ctx := WithActor(r.Context(), id.ActorID, id.Role)
			ctx = logg.With(ctx, logger.KeyActorID, id.ActorID, logger.KeyActorRole, id.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole answers 401 for anonymous callers and 403 for actors holding
// none of roles.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case !slices.Contains(roles, actor.Role):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(w http.ResponseWriter, errCode string) {
	value := `Bearer realm="littlelight"`
	if errCode != "" {
		value += `, error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
}
