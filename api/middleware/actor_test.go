package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/auth"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/enums"
	"github.com/littlelight-store/backend/pkg/logger"
)

func testSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner(config.JWTConfig{Secret: "secret", Issuer: "littlelight", ExpirationMinutes: 60})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestAuthRejectsMissingOrInvalidToken(t *testing.T) {
	signer := testSigner(t)
	for header, wantChallenge := range map[string]string{
		"":               `Bearer realm="littlelight"`,
		"Bearer ":        `Bearer realm="littlelight"`,
		"Basic dXNlcjpw": `Bearer realm="littlelight"`,
		"Bearer invalid": `Bearer realm="littlelight", error="invalid_token"`,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		Auth(signer, logger.Nop())(okHandler()).ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401 got %d", header, resp.Code)
		}
		if got := resp.Header().Get("WWW-Authenticate"); got != wantChallenge {
			t.Fatalf("header %q: challenge %q", header, got)
		}
	}
}

func TestAuthSeedsActor(t *testing.T) {
	signer := testSigner(t)
	actorID := uuid.New()
	token, err := signer.Mint(time.Now(), actorID, enums.ActorRoleBooster)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var got Actor
	handler := Auth(signer, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != (Actor{ID: actorID, Role: enums.ActorRoleBooster}) {
		t.Fatalf("unexpected actor %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(logger.Nop(), enums.ActorRoleBooster, enums.ActorRoleAdmin)

	anonymous := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/", nil))
	if anonymous.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401 got %d", anonymous.Code)
	}

	for role, want := range map[enums.ActorRole]int{
		enums.ActorRoleBooster: http.StatusOK,
		enums.ActorRoleAdmin:   http.StatusOK,
		enums.ActorRoleClient:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.New(), role))
		resp := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %s: expected %d got %d", role, want, resp.Code)
		}
	}
}
