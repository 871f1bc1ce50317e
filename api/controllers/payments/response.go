package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type paymentView struct {
	ID                  uuid.UUID           `json:"id"`
	OrderID             uuid.UUID           `json:"order_id"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	AmountMinor         int64               `json:"amount_minor"`
	ConvenienceFeeMinor int64               `json:"convenience_fee_minor"`
	TaxMinor            int64               `json:"tax_minor"`
	TotalMinor          int64               `json:"total_minor"`
	Currency            string              `json:"currency"`
	Method              enums.PaymentMethod `json:"method"`
	Status              enums.PaymentStatus `json:"status"`
	GatewayOrderID      *string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID    *string             `json:"gateway_payment_id,omitempty"`
	FailureCode         *string             `json:"failure_code,omitempty"`
	FailureReason       *string             `json:"failure_reason,omitempty"`
	PaidAt              *time.Time          `json:"paid_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

type paymentsList struct {
	Payments   []paymentView `json:"payments"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// newPaymentView omits the stored gateway signature.
func newPaymentView(p *models.Payment) paymentView {
	return paymentView{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		CustomerID:          p.CustomerID,
		AmountMinor:         p.AmountMinor,
		ConvenienceFeeMinor: p.ConvenienceFeeMinor,
		TaxMinor:            p.TaxMinor,
		TotalMinor:          p.TotalMinor,
		Currency:            p.Currency,
		Method:              p.Method,
		Status:              p.Status,
		GatewayOrderID:      p.GatewayOrderID,
		GatewayPaymentID:    p.GatewayPaymentID,
		FailureCode:         p.FailureCode,
		FailureReason:       p.FailureReason,
		PaidAt:              p.PaidAt,
		CreatedAt:           p.CreatedAt,
	}
}
