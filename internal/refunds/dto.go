package refunds

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// RequestInput opens a refund request for a delivered order.
type RequestInput struct {
	OrderID     uuid.UUID            `json:"order_id" validate:"required"`
	AmountMinor *int64               `json:"amount_minor,omitempty" validate:"omitempty,gt=0"`
	Reason      string               `json:"reason" validate:"required,max=500"`
	Category    enums.RefundCategory `json:"category" validate:"required"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Attachments []string             `json:"attachments,omitempty" validate:"omitempty,max=5,dive,url"`
}

// InitiateInput settles an accepted request against a captured payment.
type InitiateInput struct {
	RefundRequestID  uuid.UUID `json:"refund_request_id" validate:"required"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required"`
}

// BulkSkip explains why one id in a bulk update was left alone.
type BulkSkip struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

// BulkResult reports the outcome of BulkUpdateStatus per id.
type BulkResult struct {
	Updated []uuid.UUID `json:"updated"`
	Skipped []BulkSkip  `json:"skipped"`
}

// Scope narrows listings to what a principal may see.
type Scope struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
}

type RequestFilters struct {
	Status  *enums.RefundRequestStatus
	OrderID *uuid.UUID
}

type RefundFilters struct {
	Status  *enums.RefundStatus
	OrderID *uuid.UUID
}

type RequestList struct {
	Requests   []models.RefundRequest `json:"requests"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

type RefundList struct {
	Refunds    []models.Refund `json:"refunds"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
