package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/payments"
	refundcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/refunds"
	webhookcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/webhooks"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/internal/refunds"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"

	"github.com/google/uuid"
)

type stockAdjuster interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
}

type deadLetterPager interface {
	Page(ctx context.Context, reason *enums.OutboxDLQErrorReason, params pagination.Params) (*outbox.DeadLetters, error)
}

// Services groups everything the router hands to controllers. Nil services
// produce handlers that answer with INTERNAL.
type Services struct {
	Catalog        stockAdjuster
	Cart           cart.Service
	Orders         orders.Service
	Payments       payments.Service
	Refunds        refunds.Service
	DeadLetters    deadLetterPager
	Ledger         ledger.Service
	GatewayWebhook webhookcontrollers.GatewayWebhookService
	WebhookGuard   *idempotency.Manager
}

// Observability carries the readiness probes and metric plumbing.
type Observability struct {
	Readiness map[string]controllers.ReadinessCheck
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTPMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	idempotencyStore pkgredis.IdempotencyStore,
	obs Observability,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, obs.HTTP),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, obs.Readiness, logg))
	})
	if obs.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/api/webhooks/gateway", webhookcontrollers.GatewayWebhook(svcs.GatewayWebhook, cfg.Gateway.WebhookSecret, guardOrNil(svcs.WebhookGuard), logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
			r.Get("/", cartcontrollers.CartFetch(svcs.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(svcs.Cart, logg))
			r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", ordercontrollers.Create(svcs.Orders, logg))
			r.Get("/", ordercontrollers.List(svcs.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(svcs.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(svcs.Orders, logg))
				r.Patch("/address", ordercontrollers.UpdateAddress(svcs.Orders, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleVendor))
					r.Post("/confirm", ordercontrollers.Confirm(svcs.Orders, logg))
					r.Post("/process", ordercontrollers.Process(svcs.Orders, logg))
					r.Post("/ship", ordercontrollers.Ship(svcs.Orders, logg))
					r.Post("/deliver", ordercontrollers.Deliver(svcs.Orders, logg))
				})
				r.With(middleware.RequireRole(logg, enums.RoleAdmin)).Delete("/", ordercontrollers.Delete(svcs.Orders, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
				r.Post("/", paymentcontrollers.Initiate(svcs.Payments, logg))
				r.Post("/verify", paymentcontrollers.Verify(svcs.Payments, logg))
				r.Post("/fail", paymentcontrollers.Fail(svcs.Payments, logg))
			})
			r.Get("/", paymentcontrollers.List(svcs.Payments, logg))
			r.Get("/{paymentId}", paymentcontrollers.Detail(svcs.Payments, logg))
		})

		r.Route("/refund-requests", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", refundcontrollers.CreateRequest(svcs.Refunds, logg))
			r.Get("/", refundcontrollers.ListRequests(svcs.Refunds, logg))
			r.Get("/{requestId}", refundcontrollers.RequestDetail(svcs.Refunds, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleVendor))
				r.Post("/{requestId}/approve", refundcontrollers.ApproveRequest(svcs.Refunds, logg))
				r.Post("/{requestId}/reject", refundcontrollers.RejectRequest(svcs.Refunds, logg))
			})
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", refundcontrollers.Initiate(svcs.Refunds, logg))
			r.Get("/", refundcontrollers.ListRefunds(svcs.Refunds, logg))
			r.Get("/{refundId}", refundcontrollers.RefundDetail(svcs.Refunds, logg))
			r.Post("/{refundId}/retry", refundcontrollers.Retry(svcs.Refunds, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Patch("/products/{productId}/stock", controllers.AdminAdjustStock(svcs.Catalog, logg))
			r.Patch("/payments/{paymentId}/status", paymentcontrollers.AdminUpdateStatus(svcs.Payments, logg))
			r.Delete("/payments/{paymentId}", paymentcontrollers.AdminDelete(svcs.Payments, logg))
			r.Post("/refunds/bulk-status", refundcontrollers.AdminBulkStatus(svcs.Refunds, logg))
			r.Post("/refunds/{refundId}/complete", refundcontrollers.AdminComplete(svcs.Refunds, logg))
			r.Post("/refunds/{refundId}/fail", refundcontrollers.AdminFail(svcs.Refunds, logg))
			r.Delete("/refunds/{refundId}", refundcontrollers.AdminDelete(svcs.Refunds, logg))
			r.Get("/orders/{orderId}/ledger", controllers.AdminOrderLedger(svcs.Ledger, logg))
			r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(svcs.DeadLetters, logg))
		})
	})

	return r
}

// guardOrNil keeps a nil *Manager from becoming a non-nil interface.
func guardOrNil(m *idempotency.Manager) webhookcontrollers.Guard {
	if m == nil {
		return nil
	}
	return m
}
