package payloads

import (
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted once per vendor order produced by checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	TotalMinor  int64     `json:"total_minor"`
	Currency    string    `json:"currency"`
	ItemCount   int       `json:"item_count"`
}

// OrderStatusChangedEvent captures every forward lifecycle move.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ActorRole   enums.Role        `json:"actor_role,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderCancelledEvent is emitted after stock has been restored for a cancelled order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	VendorID    uuid.UUID  `json:"vendor_id"`
	CancelledBy *uuid.UUID `json:"cancelled_by,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

// OrderExpiredEvent is emitted by the expiry job.
type OrderExpiredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// PaymentInitiatedEvent describes a gateway order opened for a payment.
type PaymentInitiatedEvent struct {
	PaymentID      uuid.UUID           `json:"payment_id"`
	OrderID        uuid.UUID           `json:"order_id"`
	GatewayOrderID string              `json:"gateway_order_id"`
	Method         enums.PaymentMethod `json:"method"`
	TotalMinor     int64               `json:"total_minor"`
}

// PaymentCapturedEvent is emitted when a payment signature is verified.
type PaymentCapturedEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	OrderID          uuid.UUID `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	TotalMinor       int64     `json:"total_minor"`
	PaidAt           time.Time `json:"paid_at"`
}

// PaymentFailedEvent is emitted when the gateway or the client reports a failure.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Code      string    `json:"code,omitempty"`
	Reason    string    `json:"reason"`
}

// RefundRequestedEvent is emitted when a customer opens a refund request.
type RefundRequestedEvent struct {
	RefundRequestID uuid.UUID            `json:"refund_request_id"`
	OrderID         uuid.UUID            `json:"order_id"`
	CustomerID      uuid.UUID            `json:"customer_id"`
	VendorID        uuid.UUID            `json:"vendor_id"`
	AmountMinor     int64                `json:"amount_minor"`
	Category        enums.RefundCategory `json:"category"`
}

// RefundRequestDecidedEvent records approval or rejection of a request.
type RefundRequestDecidedEvent struct {
	RefundRequestID uuid.UUID                 `json:"refund_request_id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	Status          enums.RefundRequestStatus `json:"status"`
	ProcessedBy     uuid.UUID                 `json:"processed_by"`
	RejectionReason string                    `json:"rejection_reason,omitempty"`
}

// RefundEvent covers the initiated, completed and failed refund transitions.
type RefundEvent struct {
	RefundID        uuid.UUID          `json:"refund_id"`
	RefundRequestID uuid.UUID          `json:"refund_request_id"`
	OrderID         uuid.UUID          `json:"order_id"`
	PaymentID       uuid.UUID          `json:"payment_id"`
	AmountMinor     int64              `json:"amount_minor"`
	Status          enums.RefundStatus `json:"status"`
	GatewayRefundID string             `json:"gateway_refund_id,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}
