package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Repository defines persistence operations for orders and their line items.
// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, scope Scope, filters ListFilters, params pagination.Params) (*OrderList, error)
	ListIDsByVendor(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)
	FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from []enums.OrderPaymentStatus, updates map[string]any) (bool, error)
	UpdateAddresses(ctx context.Context, id uuid.UUID, shipping, billing *types.Address) (bool, error)
	Expire(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, scope Scope, filters ListFilters, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.VendorID != nil {
		query = query.Where("vendor_id = ?", *scope.VendorID)
	}
	if filters.Status != nil {
		query = query.Where("order_status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		query = query.Where(`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(recipient_name) LIKE ? ESCAPE '\')`, like, like)
	}
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, nextCursor := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	summaries := make([]OrderSummary, 0, len(rows))
	for _, o := range rows {
		summaries = append(summaries, OrderSummary{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerID:    o.CustomerID,
			VendorID:      o.VendorID,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
			Total:         money.FromMinor(o.TotalMinor),
			Currency:      o.Currency,
			RecipientName: o.RecipientName,
			CreatedAt:     o.CreatedAt,
		})
	}
	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) ListIDsByVendor(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("vendor_id = ?", vendorID).
		Pluck("id", &ids).Error
	return ids, err
}

// FindExpirable returns unpaid pending orders created before cutoff, oldest first.
func (r *repository) FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Where("order_status = ?", enums.OrderStatusPending).
		Where("payment_status IN ?", []enums.OrderPaymentStatus{enums.OrderPaymentPending, enums.OrderPaymentFailed}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// UpdateStatus applies updates only while the order is in one of from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from []enums.OrderPaymentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// UpdateAddresses rewrites the supplied addresses of a pending order.
func (r *repository) UpdateAddresses(ctx context.Context, id uuid.UUID, shipping, billing *types.Address) (bool, error) {
	patch := models.Order{}
	columns := make([]string, 0, 3)
	if shipping != nil {
		patch.ShippingAddress = *shipping
		patch.RecipientName = shipping.Name
		columns = append(columns, "shipping_address", "recipient_name")
	}
	if billing != nil {
		patch.BillingAddress = billing
		columns = append(columns, "billing_address")
	}
	if len(columns) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, enums.OrderStatusPending).
		Select(columns).
		Updates(&patch)
	return res.RowsAffected > 0, res.Error
}

// Expire cancels the order only while it is still pending and unpaid.
func (r *repository) Expire(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, enums.OrderStatusPending).
		Where("payment_status IN ?", []enums.OrderPaymentStatus{enums.OrderPaymentPending, enums.OrderPaymentFailed}).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// Delete removes the order and its line items while it is in status.
func (r *repository) Delete(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_status = ?", id, status).
		Delete(&models.Order{})
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return false, err
	}
	return true, nil
}
