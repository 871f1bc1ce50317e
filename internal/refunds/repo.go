package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists refund requests and refund settlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequest(ctx context.Context, request *models.RefundRequest) error
	FindRequest(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	DecideRequest(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	ListRequests(ctx context.Context, scope Scope, filters RequestFilters, params pagination.Params) (*RequestList, error)

	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindRefundByRequest(ctx context.Context, requestID uuid.UUID) (*models.Refund, error)
	FindRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*models.Refund, error)
	UpdateRefund(ctx context.Context, id uuid.UUID, from []enums.RefundStatus, updates map[string]any) (bool, error)
	DeleteRefund(ctx context.Context, id uuid.UUID) (bool, error)
	ListRefunds(ctx context.Context, scope Scope, filters RefundFilters, params pagination.Params) (*RefundList, error)
	ListProcessing(ctx context.Context, limit int) ([]models.Refund, error)
	RefundedAmount(ctx context.Context, paymentID uuid.UUID, exclude uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, request *models.RefundRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// DecideRequest only touches pending requests; false means someone else decided first.
func (r *repository) DecideRequest(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND status = ?", id, enums.RefundRequestPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListRequests(ctx context.Context, scope Scope, filters RequestFilters, params pagination.Params) (*RequestList, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.RefundRequest{}), scope)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.RefundRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, nextCursor := pagination.Trim(rows, params.Limit, func(req models.RefundRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: req.CreatedAt, ID: req.ID}
	})
	return &RequestList{Requests: rows, NextCursor: nextCursor}, nil
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	return r.firstRefund(ctx, "id = ?", id)
}

func (r *repository) FindRefundByRequest(ctx context.Context, requestID uuid.UUID) (*models.Refund, error) {
	return r.firstRefund(ctx, "refund_request_id = ?", requestID)
}

func (r *repository) FindRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*models.Refund, error) {
	return r.firstRefund(ctx, "gateway_refund_id = ?", gatewayRefundID)
}

func (r *repository) firstRefund(ctx context.Context, query string, args ...any) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).Where(query, args...).First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) UpdateRefund(ctx context.Context, id uuid.UUID, from []enums.RefundStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteRefund(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, enums.RefundStatusFailed).
		Delete(&models.Refund{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListRefunds(ctx context.Context, scope Scope, filters RefundFilters, params pagination.Params) (*RefundList, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.Refund{}), scope)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.Refund
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, nextCursor := pagination.Trim(rows, params.Limit, func(rf models.Refund) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rf.CreatedAt, ID: rf.ID}
	})
	return &RefundList{Refunds: rows, NextCursor: nextCursor}, nil
}

// ListProcessing returns refunds the gateway still owes a final answer on, oldest first.
func (r *repository) ListProcessing(ctx context.Context, limit int) ([]models.Refund, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Refund
	err := r.db.WithContext(ctx).
		Where("status = ? AND gateway_refund_id IS NOT NULL", enums.RefundStatusProcessing).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RefundedAmount sums refunds against a payment that still hold money:
// anything not failed. exclude skips the refund being re-sent.
func (r *repository) RefundedAmount(ctx context.Context, paymentID uuid.UUID, exclude uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("payment_id = ? AND status <> ? AND id <> ?", paymentID, enums.RefundStatusFailed, exclude).
		Scan(&total).Error
	return total, err
}

func scoped(query *gorm.DB, scope Scope) *gorm.DB {
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.VendorID != nil {
		query = query.Where("vendor_id = ?", *scope.VendorID)
	}
	return query
}
