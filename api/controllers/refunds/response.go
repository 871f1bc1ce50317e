package refunds

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type requestView struct {
	ID              uuid.UUID                 `json:"id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	CustomerID      uuid.UUID                 `json:"customer_id"`
	VendorID        uuid.UUID                 `json:"vendor_id"`
	AmountMinor     int64                     `json:"amount_minor"`
	Reason          string                    `json:"reason"`
	Category        enums.RefundCategory      `json:"category"`
	Notes           *string                   `json:"notes,omitempty"`
	Attachments     []string                  `json:"attachments,omitempty"`
	Status          enums.RefundRequestStatus `json:"status"`
	ProcessedBy     *uuid.UUID                `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time                `json:"processed_at,omitempty"`
	AdminNotes      *string                   `json:"admin_notes,omitempty"`
	RejectionReason *string                   `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}

type refundView struct {
	ID              uuid.UUID          `json:"id"`
	RefundRequestID uuid.UUID          `json:"refund_request_id"`
	OrderID         uuid.UUID          `json:"order_id"`
	PaymentID       uuid.UUID          `json:"payment_id"`
	AmountMinor     int64              `json:"amount_minor"`
	Currency        string             `json:"currency"`
	Reason          string             `json:"reason"`
	GatewayRefundID *string            `json:"gateway_refund_id,omitempty"`
	Status          enums.RefundStatus `json:"status"`
	Notes           *string            `json:"notes,omitempty"`
	Attempts        int                `json:"attempts"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func newRequestView(r *models.RefundRequest) requestView {
	return requestView{
		ID:              r.ID,
		OrderID:         r.OrderID,
		CustomerID:      r.CustomerID,
		VendorID:        r.VendorID,
		AmountMinor:     r.AmountMinor,
		Reason:          r.Reason,
		Category:        r.Category,
		Notes:           r.Notes,
		Attachments:     r.Attachments,
		Status:          r.Status,
		ProcessedBy:     r.ProcessedBy,
		ProcessedAt:     r.ProcessedAt,
		AdminNotes:      r.AdminNotes,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
	}
}

func newRefundView(r *models.Refund) refundView {
	return refundView{
		ID:              r.ID,
		RefundRequestID: r.RefundRequestID,
		OrderID:         r.OrderID,
		PaymentID:       r.PaymentID,
		AmountMinor:     r.AmountMinor,
		Currency:        r.Currency,
		Reason:          r.Reason,
		GatewayRefundID: r.GatewayRefundID,
		Status:          r.Status,
		Notes:           r.Notes,
		Attempts:        r.Attempts,
		CompletedAt:     r.CompletedAt,
		CreatedAt:       r.CreatedAt,
	}
}
