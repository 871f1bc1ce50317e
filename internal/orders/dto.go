package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// LineInput is one requested product and quantity.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput drives checkout. Items nil means "use the customer's cart".
type CreateInput struct {
	Items               []LineInput
	ShippingAddress     types.Address
	BillingAddress      *types.Address
	SpecialInstructions *string
	CouponCode          *string
	PaymentReference    *string
}

// ShipInput carries optional carrier details for the ship transition.
type ShipInput struct {
	Carrier        *string
	TrackingNumber *string
}

// AddressInput updates the addresses of a pending order.
type AddressInput struct {
	ShippingAddress *types.Address
	BillingAddress  *types.Address
}

// ListFilters describe the optional filters applied after role scoping.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.OrderPaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// Scope restricts a listing to a customer or vendor. Zero value is unrestricted.
type Scope struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderSummary is the list projection of an order.
type OrderSummary struct {
	ID            uuid.UUID                `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	CustomerID    uuid.UUID                `json:"customer_id"`
	VendorID      uuid.UUID                `json:"vendor_id"`
	Status        enums.OrderStatus        `json:"order_status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	Total         decimal.Decimal          `json:"total"`
	Currency      string                   `json:"currency"`
	RecipientName string                   `json:"recipient_name"`
	CreatedAt     time.Time                `json:"created_at"`
}
