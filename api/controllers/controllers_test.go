package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/littlelight-store/backend/api/middleware"
	"github.com/littlelight-store/backend/internal/cart"
	checkoutsvc "github.com/littlelight-store/backend/internal/checkout"
	"github.com/littlelight-store/backend/internal/clients"
	"github.com/littlelight-store/backend/internal/orders"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/pagination"
	"github.com/littlelight-store/backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func withActor(req *http.Request, id uuid.UUID, role enums.ActorRole) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), id, role))
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

type stubCheckout struct {
	fn func(ctx context.Context, input checkoutsvc.CartPayedInput) (*checkoutsvc.Result, error)
}

func (s stubCheckout) CartPayed(ctx context.Context, input checkoutsvc.CartPayedInput) (*checkoutsvc.Result, error) {
	return s.fn(ctx, input)
}

func TestCheckoutNormalizesInput(t *testing.T) {
	cartID := uuid.New()
	orderID := uuid.New()
	svc := stubCheckout{fn: func(_ context.Context, input checkoutsvc.CartPayedInput) (*checkoutsvc.Result, error) {
		if input.CartID != cartID {
			t.Fatalf("unexpected cart %s", input.CartID)
		}
		if input.ClientEmail != "guardian@tower.io" {
			t.Fatalf("email not normalized: %q", input.ClientEmail)
		}
		if input.Discord == nil || *input.Discord != "guardian#1" {
			t.Fatalf("unexpected discord %v", input.Discord)
		}
		if input.Comment != nil {
			t.Fatalf("blank comment should be dropped, got %q", *input.Comment)
		}
		if !input.CashbackRedeem.Equal(decimal.RequireFromString("2.5")) {
			t.Fatalf("unexpected redeem %s", input.CashbackRedeem)
		}
		return &checkoutsvc.Result{ClientOrderID: orderID, Success: true, ShouldSetCredentials: true}, nil
	}}

	body := `{"cart_id":"` + cartID.String() + `","payment_id":"pay_1","client_email":" Guardian@Tower.io ","discord":" guardian#1 ","comment":"   ","cashback_redeem":"2.5"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data checkoutsvc.Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ClientOrderID != orderID || !envelope.Data.ShouldSetCredentials {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestCheckoutRejectsInvalidEmail(t *testing.T) {
	svc := stubCheckout{fn: func(context.Context, checkoutsvc.CartPayedInput) (*checkoutsvc.Result, error) {
		t.Fatalf("service should not be called")
		return nil, nil
	}}
	body := `{"cart_id":"` + uuid.NewString() + `","payment_id":"pay_1","client_email":"nope"}`
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutSurfacesCashbackConflict(t *testing.T) {
	svc := stubCheckout{fn: func(context.Context, checkoutsvc.CartPayedInput) (*checkoutsvc.Result, error) {
		return nil, checkoutsvc.ErrNotEnoughCashback(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(5))
	}}
	body := `{"cart_id":"` + uuid.NewString() + `","payment_id":"pay_1","client_email":"a@b.co","cashback_redeem":5}`
	resp := httptest.NewRecorder()
	Checkout(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body); code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", code)
	}
}

type stubPaymentProcessor struct {
	called bool
	cartID uuid.UUID
}

func (s *stubPaymentProcessor) ProcessPaymentCallback(_ context.Context, cartID uuid.UUID) (*models.ClientOrder, error) {
	s.called = true
	s.cartID = cartID
	return &models.ClientOrder{ID: uuid.New(), CartID: cartID, Status: enums.ClientOrderStatusPayed}, nil
}

func TestPaymentWebhookChecksSecret(t *testing.T) {
	cartID := uuid.New()
	body := `{"cart_id":"` + cartID.String() + `"}`

	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong header", "s3cret", "guess", http.StatusUnauthorized},
		{"endpoint disabled", "", "", http.StatusUnauthorized},
		{"accepted", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		svc := &stubPaymentProcessor{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(body))
		if tc.header != "" {
			req.Header.Set(webhookSecretHeader, tc.header)
		}
		resp := httptest.NewRecorder()
		PaymentWebhook(tc.secret, svc, testLogger())(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
		if svc.called != (tc.want == http.StatusOK) {
			t.Fatalf("%s: unexpected service call state %v", tc.name, svc.called)
		}
		if svc.called && svc.cartID != cartID {
			t.Fatalf("%s: unexpected cart %s", tc.name, svc.cartID)
		}
	}
}

type stubDispatcher struct {
	fn func(ctx context.Context, input orders.DispatchInput) (*models.ClientOrderObjective, error)
}

func (s stubDispatcher) Dispatch(ctx context.Context, input orders.DispatchInput) (*models.ClientOrderObjective, error) {
	return s.fn(ctx, input)
}

type stubBoosterResolver struct {
	booster *models.Booster
	err     error
}

func (s stubBoosterResolver) Resolve(context.Context, uuid.UUID) (*models.Booster, error) {
	return s.booster, s.err
}

func TestObjectiveActionResolvesBoosterActor(t *testing.T) {
	userID := uuid.New()
	booster := &models.Booster{ID: uuid.New(), UserID: userID}
	objectiveID := uuid.New()

	svc := stubDispatcher{fn: func(_ context.Context, input orders.DispatchInput) (*models.ClientOrderObjective, error) {
		if input.Actor.Role != enums.ActorRoleBooster || input.Actor.ID != booster.ID {
			t.Fatalf("expected booster actor, got %+v", input.Actor)
		}
		if input.Action != enums.ActionBoosterSignedIn || input.ObjectiveID != objectiveID {
			t.Fatalf("unexpected dispatch %+v", input)
		}
		return &models.ClientOrderObjective{ID: objectiveID, Status: enums.ObjectiveStatusInProgress}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"booster_signed_in"}`))
	req = withURLParams(withActor(req, userID, enums.ActorRoleBooster), map[string]string{"objectiveId": objectiveID.String()})
	resp := httptest.NewRecorder()
	ObjectiveAction(svc, stubBoosterResolver{booster: booster}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestObjectiveActionUsesClientIDDirectly(t *testing.T) {
	clientID := uuid.New()
	svc := stubDispatcher{fn: func(_ context.Context, input orders.DispatchInput) (*models.ClientOrderObjective, error) {
		if input.Actor.Role != enums.ActorRoleClient || input.Actor.ID != clientID {
			t.Fatalf("expected client actor, got %+v", input.Actor)
		}
		return &models.ClientOrderObjective{ID: input.ObjectiveID}, nil
	}}
	resolver := stubBoosterResolver{err: errors.New("must not resolve clients")}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"approve_order"}`))
	req = withURLParams(withActor(req, clientID, enums.ActorRoleClient), map[string]string{"objectiveId": uuid.NewString()})
	resp := httptest.NewRecorder()
	ObjectiveAction(svc, resolver, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestObjectiveActionRejectsUnknownAction(t *testing.T) {
	svc := stubDispatcher{fn: func(context.Context, orders.DispatchInput) (*models.ClientOrderObjective, error) {
		t.Fatalf("dispatch should not run")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"teleport"}`))
	req = withURLParams(withActor(req, uuid.New(), enums.ActorRoleClient), map[string]string{"objectiveId": uuid.NewString()})
	resp := httptest.NewRecorder()
	ObjectiveAction(svc, stubBoosterResolver{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubLister struct {
	clientID  uuid.UUID
	boosterID uuid.UUID
	params    pagination.Params
}

func (s *stubLister) ListClientObjectives(_ context.Context, clientID uuid.UUID, params pagination.Params) (*orders.ObjectiveList, error) {
	s.clientID, s.params = clientID, params
	return &orders.ObjectiveList{}, nil
}

func (s *stubLister) ListBoosterObjectives(_ context.Context, boosterID uuid.UUID, params pagination.Params) (*orders.ObjectiveList, error) {
	s.boosterID, s.params = boosterID, params
	return &orders.ObjectiveList{}, nil
}

func (s *stubLister) ListAvailableObjectives(_ context.Context, params pagination.Params) (*orders.ObjectiveList, error) {
	s.params = params
	return &orders.ObjectiveList{}, nil
}

func TestBoosterObjectivesScopesToResolvedBooster(t *testing.T) {
	booster := &models.Booster{ID: uuid.New()}
	lister := &stubLister{}
	req := withActor(httptest.NewRequest(http.MethodGet, "/?limit=5", nil), uuid.New(), enums.ActorRoleBooster)
	resp := httptest.NewRecorder()
	BoosterObjectives(lister, stubBoosterResolver{booster: booster}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if lister.boosterID != booster.ID || lister.params.Limit != 5 {
		t.Fatalf("unexpected list call %s %+v", lister.boosterID, lister.params)
	}
}

func TestClientObjectivesRequiresActor(t *testing.T) {
	resp := httptest.NewRecorder()
	ClientObjectives(&stubLister{}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

type stubObjectiveReader struct {
	objective *models.ClientOrderObjective
	order     *models.ClientOrder
}

func (s stubObjectiveReader) FindObjective(context.Context, uuid.UUID) (*models.ClientOrderObjective, error) {
	return s.objective, nil
}

func (s stubObjectiveReader) FindOrderWithObjectives(context.Context, uuid.UUID) (*models.ClientOrder, error) {
	return s.order, nil
}

type stubRevealer struct {
	called bool
}

func (s *stubRevealer) RevealCredentials(_ context.Context, _ uuid.UUID, platform enums.Platform) (*clients.Credentials, error) {
	s.called = true
	return &clients.Credentials{Platform: platform, AccountName: "guardian", Password: "hunter2"}, nil
}

func TestBoosterCredentialsOnlyForAssignedBooster(t *testing.T) {
	booster := &models.Booster{ID: uuid.New()}
	other := uuid.New()
	order := &models.ClientOrder{ID: uuid.New(), ClientID: uuid.New(), Platform: enums.PlatformSteam}

	cases := []struct {
		name     string
		assigned *uuid.UUID
		want     int
	}{
		{"unassigned", nil, http.StatusForbidden},
		{"someone else", &other, http.StatusForbidden},
		{"assigned", &booster.ID, http.StatusOK},
	}
	for _, tc := range cases {
		reader := stubObjectiveReader{
			objective: &models.ClientOrderObjective{ID: uuid.New(), OrderID: order.ID, BoosterID: tc.assigned},
			order:     order,
		}
		revealer := &stubRevealer{}
		req := withActor(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), enums.ActorRoleBooster)
		req = withURLParams(req, map[string]string{"objectiveId": reader.objective.ID.String()})
		resp := httptest.NewRecorder()
		BoosterCredentials(stubBoosterResolver{booster: booster}, reader, revealer, testLogger())(resp, req)

		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
		if revealer.called != (tc.want == http.StatusOK) {
			t.Fatalf("%s: unexpected reveal state %v", tc.name, revealer.called)
		}
	}
}

type stubCredentialSetter struct {
	input clients.SetCredentialsInput
}

func (s *stubCredentialSetter) SetCredentials(_ context.Context, input clients.SetCredentialsInput) error {
	s.input = input
	return nil
}

func TestSetCredentialsUsesCallerAsClient(t *testing.T) {
	clientID := uuid.New()
	svc := &stubCredentialSetter{}
	body := `{"platform":"psn","account_name":"guardian","password":"hunter2","has_second_factor":true}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), clientID, enums.ActorRoleClient)
	resp := httptest.NewRecorder()
	SetCredentials(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.ClientID != clientID || svc.input.Platform != enums.PlatformPSN || !svc.input.HasSecondFactor {
		t.Fatalf("unexpected input %+v", svc.input)
	}
}

type stubCart struct {
	cart.Service
	added *cart.AddItemInput
}

func (s *stubCart) AddItem(_ context.Context, _ *uuid.UUID, input cart.AddItemInput) (*cart.View, error) {
	s.added = &input
	return &cart.View{ID: uuid.New()}, nil
}

func TestCartAddItemRejectsUnknownPlatform(t *testing.T) {
	svc := &stubCart{}
	body := `{"service_slug":"raid","profile":{"membership_id":"42","platform":"stadia"},"character":{"character_id":"7"}}`
	resp := httptest.NewRecorder()
	CartAddItem(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.added != nil {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemAcceptsMembershipCode(t *testing.T) {
	svc := &stubCart{}
	body := `{"service_slug":" raid ","profile":{"membership_id":"42","platform":"3"},"character":{"character_id":"7"}}`
	resp := httptest.NewRecorder()
	CartAddItem(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.added.Profile.Platform != enums.PlatformSteam || svc.added.ServiceSlug != "raid" {
		t.Fatalf("unexpected input %+v", svc.added)
	}
}

func TestCartEndpointsWithoutServiceReportInternal(t *testing.T) {
	resp := httptest.NewRecorder()
	CartGet(nil, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp.Body); code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", code)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), ReadinessCheck{Name: "db", Pinger: stubPinger{}})(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, testLogger(),
		ReadinessCheck{Name: "db", Pinger: stubPinger{}},
		ReadinessCheck{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
	)(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
