package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Order is one vendor-scoped purchase. Money columns are minor units.
type Order struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string                   `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID            uuid.UUID                `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status              enums.OrderStatus        `gorm:"column:order_status;type:text;not null;default:'pending'"`
	PaymentStatus       enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	SubtotalMinor       int64                    `gorm:"column:subtotal_minor;not null"`
	TaxMinor            int64                    `gorm:"column:tax_minor;not null"`
	ShippingFeeMinor    int64                    `gorm:"column:shipping_fee_minor;not null"`
	DiscountMinor       int64                    `gorm:"column:discount_minor;not null;default:0"`
	TotalMinor          int64                    `gorm:"column:total_minor;not null"`
	Currency            string                   `gorm:"column:currency;not null"`
	ShippingAddress     types.Address            `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress      *types.Address           `gorm:"column:billing_address;type:jsonb;serializer:json"`
	RecipientName       string                   `gorm:"column:recipient_name;not null"`
	SpecialInstructions *string                  `gorm:"column:special_instructions"`
	CouponCode          *string                  `gorm:"column:coupon_code"`
	PaymentReference    *string                  `gorm:"column:payment_reference"`
	Carrier             *string                  `gorm:"column:carrier"`
	TrackingNumber      *string                  `gorm:"column:tracking_number"`
	CancellationReason  *string                  `gorm:"column:cancellation_reason"`
	CancelledBy         *uuid.UUID               `gorm:"column:cancelled_by;type:uuid"`
	LineItems           []OrderLineItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	ConfirmedAt         *time.Time               `gorm:"column:confirmed_at"`
	ProcessingAt        *time.Time               `gorm:"column:processing_at"`
	ShippedAt           *time.Time               `gorm:"column:shipped_at"`
	DeliveredAt         *time.Time               `gorm:"column:delivered_at"`
	CancelledAt         *time.Time               `gorm:"column:cancelled_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OwnedBy reports whether the principal is the order's customer or vendor.
func (o *Order) OwnedBy(userID uuid.UUID, role enums.Role) bool {
	switch role {
	case enums.RoleAdmin:
		return true
	case enums.RoleCustomer:
		return o.CustomerID == userID
	case enums.RoleVendor:
		return o.VendorID == userID
	default:
		return false
	}
}
