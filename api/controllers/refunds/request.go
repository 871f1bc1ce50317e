package refunds

import (
	"github.com/google/uuid"
)

type createRequestBody struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	AmountMinor *int64    `json:"amount_minor,omitempty" validate:"omitempty,gt=0"`
	Reason      string    `json:"reason" validate:"required,max=500"`
	Category    string    `json:"category" validate:"required,oneof=duplicate not_as_described other"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Attachments []string  `json:"attachments,omitempty" validate:"omitempty,max=5,dive,url"`
}

type approveBody struct {
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

type rejectBody struct {
	Reason     string  `json:"reason" validate:"required,max=500"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

type initiateBody struct {
	RefundRequestID  uuid.UUID `json:"refund_request_id" validate:"required"`
	GatewayPaymentID string    `json:"razorpay_payment_id" validate:"required,max=64"`
}

type failBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type bulkStatusBody struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
	Status string      `json:"status" validate:"required,oneof=completed failed"`
}
