package webhooks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	gatewaywebhook "github.com/angelmondragon/bazaar-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/bazaar-backend/pkg/gateway"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

const testSecret = "whsec_test"

type fakeGatewayWebhookService struct {
	calls  int
	events []string
	err    error
}

func (f *fakeGatewayWebhookService) HandleEvent(_ context.Context, event *gatewaywebhook.Event) error {
	f.calls++
	f.events = append(f.events, event.Event)
	return f.err
}

func newGuard(t *testing.T) *idempotency.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := redis.NewFromClient(raw)
	manager, err := idempotency.NewManager(client, time.Hour)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return manager
}

func signedRequest(body []byte, secret, eventID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/gateway", bytes.NewReader(body))
	req.Header.Set(signatureHeader, gateway.Sign(body, secret))
	if eventID != "" {
		req.Header.Set(eventIDHeader, eventID)
	}
	return req
}

var capturedBody = []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured","amount":120000}}}}`)

func TestGatewayWebhookSuccessAndIdempotent(t *testing.T) {
	svc := &fakeGatewayWebhookService{}
	handler := GatewayWebhook(svc, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(capturedBody, testSecret, "evt_1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(capturedBody, testSecret, "evt_1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("expected replay to be skipped, calls=%d", svc.calls)
	}
}

func TestGatewayWebhookInvalidSignature(t *testing.T) {
	svc := &fakeGatewayWebhookService{}
	handler := GatewayWebhook(svc, testSecret, newGuard(t), nil)

	for _, req := range []*http.Request{
		signedRequest(capturedBody, "other-secret", "evt_2"),
		httptest.NewRequest(http.MethodPost, "/api/webhooks/gateway", bytes.NewReader(capturedBody)),
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("SIGNATURE_INVALID")) {
			t.Fatalf("expected SIGNATURE_INVALID, got %s", rec.Body.String())
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run on invalid signatures")
	}
}

func TestGatewayWebhookReleasesGuardOnFailure(t *testing.T) {
	svc := &fakeGatewayWebhookService{err: errors.New("database unavailable")}
	handler := GatewayWebhook(svc, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(capturedBody, testSecret, "evt_3"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	svc.err = nil
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(capturedBody, testSecret, "evt_3"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
	}
	if svc.calls != 2 {
		t.Fatalf("expected redelivery to be processed, calls=%d", svc.calls)
	}
}

func TestGatewayWebhookFallsBackToSignatureForReplayKey(t *testing.T) {
	svc := &fakeGatewayWebhookService{}
	handler := GatewayWebhook(svc, testSecret, newGuard(t), nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(capturedBody, testSecret, ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if svc.calls != 1 {
		t.Fatalf("expected identical deliveries to be deduplicated, calls=%d", svc.calls)
	}
}

func TestGatewayWebhookRejectsUnparsableBody(t *testing.T) {
	svc := &fakeGatewayWebhookService{}
	handler := GatewayWebhook(svc, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest([]byte(`not json`), testSecret, "evt_4"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
