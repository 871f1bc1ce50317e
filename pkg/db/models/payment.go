package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Payment is one attempt to collect money for an order. The partial unique
// index keeps at most one successful payment per order.
type Payment struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index;uniqueIndex:ux_payments_order_success,where:status = 'success'"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	AmountMinor         int64               `gorm:"column:amount_minor;not null"`
	ConvenienceFeeMinor int64               `gorm:"column:convenience_fee_minor;not null"`
	TaxMinor            int64               `gorm:"column:tax_minor;not null"`
	TotalMinor          int64               `gorm:"column:total_minor;not null"`
	Currency            string              `gorm:"column:currency;not null"`
	Method              enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status              enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayOrderID      *string             `gorm:"column:gateway_order_id;uniqueIndex"`
	GatewayPaymentID    *string             `gorm:"column:gateway_payment_id;index"`
	GatewaySignature    *string             `gorm:"column:gateway_signature"`
	FailureCode         *string             `gorm:"column:failure_code"`
	FailureReason       *string             `gorm:"column:failure_reason"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
