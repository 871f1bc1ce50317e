// Package bootstrap assembles the commerce service graph shared by the api
// process and the cron worker.
package bootstrap

import (
	"fmt"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/internal/refunds"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

// Gateway is the remote payment gateway surface both payments and refunds need.
type Gateway interface {
	payments.Gateway
	refunds.Gateway
}

type Params struct {
	Config  *config.Config
	DB      *db.Client
	Gateway Gateway
	Logger  *logger.Logger
	Metrics *metrics.CommerceMetrics
}

// Services is the wired commerce graph.
type Services struct {
	Catalog     *catalog.Service
	Cart        cart.Service
	Orders      orders.Service
	Payments    payments.Service
	Refunds     refunds.Service
	Ledger      ledger.Service
	OutboxRepo  *outbox.Repository
	DeadLetters *outbox.DLQRepository
}

func NewServices(p Params) (*Services, error) {
	if p.Config == nil || p.DB == nil {
		return nil, fmt.Errorf("config and db client required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	cfg := p.Config
	conn := p.DB.DB()

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, p.Logger)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	catalogSvc := catalog.NewService(catalog.NewRepository(conn), p.Logger)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), catalogSvc)
	if err != nil {
		return nil, fmt.Errorf("cart: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Tx:       p.DB,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Outbox:   emitter,
		Pricing:  cfg.Pricing,
		Currency: cfg.Gateway.Currency,
		Logger:   p.Logger,
		Metrics:  p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(conn),
		Tx:      p.DB,
		Orders:  orderSvc,
		Ledger:  ledgerSvc,
		Outbox:  emitter,
		Gateway: p.Gateway,
		Config:  cfg.Gateway,
		Pricing: cfg.Pricing,
		Logger:  p.Logger,
		Metrics: p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}

	refundSvc, err := refunds.NewService(refunds.ServiceParams{
		Repo:     refunds.NewRepository(conn),
		Tx:       p.DB,
		Orders:   orderSvc,
		Payments: paymentSvc,
		Ledger:   ledgerSvc,
		Outbox:   emitter,
		Gateway:  p.Gateway,
		Currency: cfg.Gateway.Currency,
		Timeout:  cfg.Gateway.Timeout,
		Logger:   p.Logger,
		Metrics:  p.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("refunds: %w", err)
	}

	return &Services{
		Catalog:     catalogSvc,
		Cart:        cartSvc,
		Orders:      orderSvc,
		Payments:    paymentSvc,
		Refunds:     refundSvc,
		Ledger:      ledgerSvc,
		OutboxRepo:  outboxRepo,
		DeadLetters: outbox.NewDLQRepository(conn),
	}, nil
}
