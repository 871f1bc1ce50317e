package payments

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// InitiateInput opens a payment. AmountMinor nil charges the order total.
type InitiateInput struct {
	OrderID     uuid.UUID
	AmountMinor *int64
	Method      enums.PaymentMethod
}

// Prefill is handed to the checkout widget.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact"`
}

// InitiateResult is everything a client needs to open the gateway checkout.
// The key secret never appears here.
type InitiateResult struct {
	KeyID          string          `json:"key_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	AmountMinor    int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Prefill        Prefill         `json:"prefill"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Payment        *models.Payment `json:"-"`
}

// VerifyInput is the client-side callback after checkout.
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// FailInput reports a client-observed failure.
type FailInput struct {
	GatewayOrderID string
	Reason         string
	Code           *string
}

// ListFilters narrow payment listings after role scoping.
type ListFilters struct {
	Status  *enums.PaymentStatus
	Method  *enums.PaymentMethod
	OrderID *uuid.UUID
}

// Scope restricts a listing by customer or by a set of orders.
type Scope struct {
	CustomerID *uuid.UUID
	OrderIDs   []uuid.UUID
	ByOrders   bool
}

// PaymentList wraps a page of payments plus the next page cursor.
type PaymentList struct {
	Payments   []models.Payment
	NextCursor string
}
