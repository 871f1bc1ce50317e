package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Refund is the settlement record of money actually sent back through the gateway.
type Refund struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	RefundRequestID  uuid.UUID          `gorm:"column:refund_request_id;type:uuid;not null;uniqueIndex"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentID        uuid.UUID          `gorm:"column:payment_id;type:uuid;not null"`
	CustomerID       uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	AmountMinor      int64              `gorm:"column:amount_minor;not null"`
	Currency         string             `gorm:"column:currency;not null"`
	Reason           string             `gorm:"column:reason;not null"`
	GatewayPaymentID string             `gorm:"column:gateway_payment_id;not null"`
	GatewayRefundID  *string            `gorm:"column:gateway_refund_id;index"`
	Status           enums.RefundStatus `gorm:"column:status;type:text;not null;default:'initiated'"`
	Notes            *string            `gorm:"column:notes"`
	Attempts         int                `gorm:"column:attempts;not null;default:0"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Refund) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
