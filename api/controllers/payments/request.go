package payments

import (
	"github.com/google/uuid"
)

type initiateRequest struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	AmountMinor *int64    `json:"amount_minor,omitempty" validate:"omitempty,gt=0"`
	Method      string    `json:"method" validate:"required,oneof=upi card netbanking wallet"`
}

type verifyRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	Signature        string `json:"razorpay_signature" validate:"required,max=256"`
}

type failRequest struct {
	GatewayOrderID string  `json:"razorpay_order_id" validate:"required,max=64"`
	Reason         string  `json:"reason" validate:"max=500"`
	Code           *string `json:"code,omitempty" validate:"omitempty,max=64"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending success failed refunded"`
}
