package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository defines persistence operations for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	FindSuccessful(ctx context.Context, customerID uuid.UUID, gatewayPaymentID string) (*models.Payment, error)
	HasSuccess(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	MarkSuccess(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, code *string, reason string) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	OverwriteStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, scope Scope, filters ListFilters, params pagination.Params) (*PaymentList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	return r.first(ctx, "gateway_order_id = ?", gatewayOrderID)
}

func (r *repository) FindSuccessful(ctx context.Context, customerID uuid.UUID, gatewayPaymentID string) (*models.Payment, error) {
	return r.first(ctx, "customer_id = ? AND gateway_payment_id = ? AND status = ?", customerID, gatewayPaymentID, enums.PaymentStatusSuccess)
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where(query, args...).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) HasSuccess(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusSuccess).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SetGatewayOrder(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("gateway_order_id", gatewayOrderID).Error
}

// MarkSuccess captures a pending or previously failed payment.
func (r *repository) MarkSuccess(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusFailed}).
		Updates(map[string]any{
			"status":             enums.PaymentStatusSuccess,
			"gateway_payment_id": gatewayPaymentID,
			"gateway_signature":  signature,
			"paid_at":            paidAt,
			"failure_code":       nil,
			"failure_reason":     nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, code *string, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_code":   code,
			"failure_reason": reason,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusSuccess).
		Update("status", enums.PaymentStatusRefunded)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) OverwriteStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes a payment that never settled.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status NOT IN ?", id, []enums.PaymentStatus{enums.PaymentStatusSuccess, enums.PaymentStatusRefunded}).
		Delete(&models.Payment{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) List(ctx context.Context, scope Scope, filters ListFilters, params pagination.Params) (*PaymentList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	}
	if scope.ByOrders && len(scope.OrderIDs) == 0 {
		return &PaymentList{Payments: []models.Payment{}}, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.ByOrders {
		query = query.Where("order_id IN ?", scope.OrderIDs)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Method != nil {
		query = query.Where("method = ?", *filters.Method)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.Payment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, nextCursor := pagination.Trim(rows, params.Limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &PaymentList{Payments: rows, NextCursor: nextCursor}, nil
}
