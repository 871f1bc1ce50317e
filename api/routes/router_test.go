package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// Only the methods a test exercises are overridden; anything else panics
// and the recoverer turns it into a 500.
type stubOrdersService struct {
	orders.Service
	creates  atomic.Int32
	delivers atomic.Int32
}

func (s *stubOrdersService) CreateFromCart(_ context.Context, principal auth.Principal, _ orders.CreateInput) ([]models.Order, error) {
	s.creates.Add(1)
	return []models.Order{{
		ID:          uuid.New(),
		OrderNumber: "ORD1",
		CustomerID:  principal.UserID,
		VendorID:    uuid.New(),
		Status:      enums.OrderStatusPending,
	}}, nil
}

func (s *stubOrdersService) Deliver(_ context.Context, _ auth.Principal, id uuid.UUID) (*models.Order, error) {
	s.delivers.Add(1)
	return &models.Order{ID: id, Status: enums.OrderStatusDelivered}, nil
}

type stubPaymentsService struct {
	payments.Service
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Gateway: config.GatewayConfig{WebhookSecret: "whsec"},
	}
}

func newIdempotencyStore(t *testing.T) pkgredis.IdempotencyStore {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return pkgredis.NewFromClient(raw)
}

func newTestRouter(t *testing.T, cfg *config.Config, svcs Services) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logg, newIdempotencyStore(t), Observability{
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
	}, svcs)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := auth.IssueToken(cfg.JWT, time.Now(), auth.Principal{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig(), Services{Orders: &stubOrdersService{}})
	resp := do(router, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, Services{Payments: stubPaymentsService{}})

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/payments/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleVendor))
	if resp := do(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

func TestOrderTransitionsRequireAdminOrVendor(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(t, cfg, Services{Orders: svc})
	path := "/api/orders/" + uuid.NewString() + "/deliver"

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	if resp := do(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleVendor))
	if resp := do(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.delivers.Load() != 1 {
		t.Fatalf("expected deliver to run once, got %d", svc.delivers.Load())
	}
}

func TestCartIsCustomerOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, Services{})
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleVendor))
	if resp := do(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor cart got %d", resp.Code)
	}
}

func TestOrderCreateIsIdempotent(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(t, cfg, Services{Orders: svc})
	token := buildToken(t, cfg, enums.RoleCustomer)
	body := `{"shipping_address":{"name":"Asha Rao","phone":"9876543210","line1":"12 MG Road","city":"Bengaluru","state":"KA","postal_code":"560001","country":"IN"}}`

	newReq := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		return req
	}

	if resp := do(router, newReq("")); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	first := do(router, newReq("order-key-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := do(router, newReq("order-key-1"))
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical replay body")
	}
	if svc.creates.Load() != 1 {
		t.Fatalf("expected one create, got %d", svc.creates.Load())
	}
}

func TestGatewayWebhookSkipsJWT(t *testing.T) {
	router := newTestRouter(t, testConfig(), Services{})
	resp := do(router, httptest.NewRequest(http.MethodPost, "/api/webhooks/gateway", strings.NewReader(`{}`)))
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("webhook must not require a JWT")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, testConfig(), Services{})

	if resp := do(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", resp.Code)
	}
	if resp := do(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected ready 200 got %d", resp.Code)
	}
	resp := do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected metrics 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "bazaar_http_requests_total") {
		t.Fatalf("expected http metrics exported")
	}
}
