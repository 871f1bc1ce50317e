package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type stubAdjuster struct {
	adjustFn func(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
}

func (s stubAdjuster) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	return s.adjustFn(ctx, id, delta)
}

func adjustRouter(adj stockAdjuster) http.Handler {
	r := chi.NewRouter()
	r.Patch("/api/admin/products/{productId}/stock", AdminAdjustStock(adj, nil))
	return r
}

func TestAdminAdjustStock(t *testing.T) {
	productID := uuid.New()
	var gotDelta int
	adj := stubAdjuster{adjustFn: func(_ context.Context, id uuid.UUID, delta int) (*models.Product, error) {
		gotDelta = delta
		return &models.Product{ID: id, Stock: 7}, nil
	}}

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/products/"+productID.String()+"/stock", strings.NewReader(`{"delta":-3,"reason":"damaged in warehouse"}`))
	resp := httptest.NewRecorder()
	adjustRouter(adj).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotDelta != -3 {
		t.Fatalf("expected delta -3 got %d", gotDelta)
	}
	if !strings.Contains(resp.Body.String(), `"stock":7`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAdminAdjustStockRejectsZeroAndNegativeResult(t *testing.T) {
	adj := stubAdjuster{adjustFn: func(context.Context, uuid.UUID, int) (*models.Product, error) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go negative")
	}}
	router := adjustRouter(adj)
	path := "/api/admin/products/" + uuid.NewString() + "/stock"

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"delta":0}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero delta got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"delta":-50}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestHealthReadyReportsFailingChecks(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	handler := HealthReady(cfg, map[string]ReadinessCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "test" {
		t.Fatalf("expected env header")
	}
	if !strings.Contains(resp.Body.String(), "redis") {
		t.Fatalf("expected failing check named: %s", resp.Body.String())
	}
}

func TestHealthLiveAndReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type stubPager struct {
	reason *enums.OutboxDLQErrorReason
	params pagination.Params
	page   *outbox.DeadLetters
	err    error
}

func (s *stubPager) Page(_ context.Context, reason *enums.OutboxDLQErrorReason, params pagination.Params) (*outbox.DeadLetters, error) {
	s.reason = reason
	s.params = params
	return s.page, s.err
}

func TestAdminDeadLettersPassesFilters(t *testing.T) {
	msg := "topic not found"
	pager := &stubPager{page: &outbox.DeadLetters{
		Entries: []models.OutboxDLQ{{
			ID:           uuid.New(),
			EventType:    enums.EventRefundCompleted,
			ErrorReason:  enums.OutboxDLQReasonNonRetryable,
			ErrorMessage: &msg,
			AttemptCount: 1,
			Payload:      []byte(`{"data":{}}`),
		}},
		NextCursor: "next",
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/outbox/dead-letters?reason=non_retryable&limit=5", nil)
	resp := httptest.NewRecorder()
	AdminDeadLetters(pager, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if pager.reason == nil || *pager.reason != enums.OutboxDLQReasonNonRetryable || pager.params.Limit != 5 {
		t.Fatalf("filters not forwarded: %+v %+v", pager.reason, pager.params)
	}
	for _, want := range []string{`"reason":"non_retryable"`, `"error":"topic not found"`, `"next_cursor":"next"`} {
		if !strings.Contains(resp.Body.String(), want) {
			t.Fatalf("missing %s in %s", want, resp.Body.String())
		}
	}
}

func TestAdminDeadLettersRejectsBadInput(t *testing.T) {
	for _, target := range []string{
		"/api/admin/outbox/dead-letters?reason=timeout",
		"/api/admin/outbox/dead-letters?limit=0",
	} {
		resp := httptest.NewRecorder()
		AdminDeadLetters(&stubPager{page: &outbox.DeadLetters{}}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	AdminDeadLetters(&stubPager{err: pagination.ErrInvalidCursor}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/outbox/dead-letters?cursor=zz", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor: expected 400 got %d", resp.Code)
	}
}

type stubLedger struct {
	events []models.LedgerEvent
}

func (s stubLedger) ListByOrder(context.Context, uuid.UUID) ([]models.LedgerEvent, error) {
	return s.events, nil
}

func (s stubLedger) Balance(context.Context, uuid.UUID) (*ledger.Balance, error) {
	return &ledger.Balance{CapturedMinor: 1000, RefundedMinor: 400, NetMinor: 600}, nil
}

func TestAdminOrderLedger(t *testing.T) {
	orderID := uuid.New()
	reader := stubLedger{events: []models.LedgerEvent{
		{ID: uuid.New(), OrderID: orderID, Type: enums.LedgerEventPaymentCaptured, AmountMinor: 1000},
		{ID: uuid.New(), OrderID: orderID, Type: enums.LedgerEventRefundCompleted, AmountMinor: 400, ActorUserID: uuid.New()},
	}}
	r := chi.NewRouter()
	r.Get("/api/admin/orders/{orderId}/ledger", AdminOrderLedger(reader, nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders/"+orderID.String()+"/ledger", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	for _, want := range []string{`"net_minor":600`, `"type":"refund_completed"`, `"actor_user_id"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in %s", want, body)
		}
	}
	if strings.Count(body, `"actor_user_id"`) != 1 {
		t.Fatalf("system events should omit the actor: %s", body)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/orders/not-a-uuid/ledger", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.Code)
	}
}
