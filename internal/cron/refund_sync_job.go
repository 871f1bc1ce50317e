package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const defaultRefundSyncBatch = 100

type processingRefunds interface {
	ListProcessing(ctx context.Context, limit int) ([]models.Refund, error)
	Sync(ctx context.Context, refund models.Refund) (enums.RefundStatus, error)
}

type RefundSyncJobParams struct {
	Logger    *logger.Logger
	Refunds   processingRefunds
	BatchSize int
}

// NewRefundSyncJob polls the gateway for refunds still marked processing.
// Webhooks usually settle them first; this catches the missed deliveries.
func NewRefundSyncJob(params RefundSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refunds service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRefundSyncBatch
	}
	return &refundSyncJob{logg: params.Logger, refunds: params.Refunds, batch: batch}, nil
}

type refundSyncJob struct {
	logg    *logger.Logger
	refunds processingRefunds
	batch   int
}

func (j *refundSyncJob) Name() string { return "refund-sync" }

func (j *refundSyncJob) Run(ctx context.Context) error {
	pending, err := j.refunds.ListProcessing(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list processing refunds: %w", err)
	}

	var errs error
	outcomes := map[enums.RefundStatus]int{}
	stuck := 0
	for _, refund := range pending {
		status, err := j.refunds.Sync(ctx, refund)
		if err != nil {
			// Non-retryable errors are logged, not returned.
			if !pkgerrors.IsRetryable(err) {
				stuck++
				j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
					"refund_id":  refund.ID.String(),
					"error_code": string(pkgerrors.CodeOf(err)),
				}), "cron.refund_sync.stuck")
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("sync refund %s: %w", refund.ID, err))
			continue
		}
		outcomes[status]++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked":   len(pending),
		"completed": outcomes[enums.RefundStatusCompleted],
		"failed":    outcomes[enums.RefundStatusFailed],
		"unchanged": outcomes[enums.RefundStatusProcessing],
		"stuck":     stuck,
		"errors":    len(multierr.Errors(errs)),
	}), "cron.refund_sync.summary")
	return errs
}
