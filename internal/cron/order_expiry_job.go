package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	defaultPendingTTL  = 48 * time.Hour
	defaultExpiryBatch = 200
	orderExpiryJobName = "order-expiry"
)

type expiringOrders interface {
	FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Orders     expiringOrders
	PendingTTL time.Duration
	BatchSize  int
}

// NewOrderExpiryJob cancels unpaid pending orders older than PendingTTL and
// puts their stock back.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders expiringOrders
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return orderExpiryJobName }

// Run handles one batch per cycle; leftovers are picked up on the next tick.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindExpirable(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find expirable orders: %w", err)
	}

	var (
		errs    error
		expired int
		raced   int
	)
	for _, order := range stale {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		ok, err := j.orders.Expire(ctx, order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if !ok {
			// paid or transitioned between the scan and the update
			raced++
			continue
		}
		expired++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"expired":    expired,
		"raced":      raced,
	}), "cron.order_expiry.summary")
	return errs
}
