package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type lineItemView struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	LineTotalMinor int64     `json:"line_total_minor"`
}

type orderView struct {
	ID                  uuid.UUID                `json:"id"`
	OrderNumber         string                   `json:"order_number"`
	CustomerID          uuid.UUID                `json:"customer_id"`
	VendorID            uuid.UUID                `json:"vendor_id"`
	Status              enums.OrderStatus        `json:"order_status"`
	PaymentStatus       enums.OrderPaymentStatus `json:"payment_status"`
	SubtotalMinor       int64                    `json:"subtotal_minor"`
	TaxMinor            int64                    `json:"tax_minor"`
	ShippingFeeMinor    int64                    `json:"shipping_fee_minor"`
	DiscountMinor       int64                    `json:"discount_minor"`
	TotalMinor          int64                    `json:"total_minor"`
	Total               decimal.Decimal          `json:"total"`
	Currency            string                   `json:"currency"`
	ShippingAddress     types.Address            `json:"shipping_address"`
	BillingAddress      *types.Address           `json:"billing_address,omitempty"`
	SpecialInstructions *string                  `json:"special_instructions,omitempty"`
	CouponCode          *string                  `json:"coupon_code,omitempty"`
	Carrier             *string                  `json:"carrier,omitempty"`
	TrackingNumber      *string                  `json:"tracking_number,omitempty"`
	CancellationReason  *string                  `json:"cancellation_reason,omitempty"`
	LineItems           []lineItemView           `json:"line_items"`
	CreatedAt           time.Time                `json:"created_at"`
	ConfirmedAt         *time.Time               `json:"confirmed_at,omitempty"`
	ProcessingAt        *time.Time               `json:"processing_at,omitempty"`
	ShippedAt           *time.Time               `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time               `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time               `json:"cancelled_at,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerID:          order.CustomerID,
		VendorID:            order.VendorID,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		SubtotalMinor:       order.SubtotalMinor,
		TaxMinor:            order.TaxMinor,
		ShippingFeeMinor:    order.ShippingFeeMinor,
		DiscountMinor:       order.DiscountMinor,
		TotalMinor:          order.TotalMinor,
		Total:               money.FromMinor(order.TotalMinor),
		Currency:            order.Currency,
		ShippingAddress:     order.ShippingAddress,
		BillingAddress:      order.BillingAddress,
		SpecialInstructions: order.SpecialInstructions,
		CouponCode:          order.CouponCode,
		Carrier:             order.Carrier,
		TrackingNumber:      order.TrackingNumber,
		CancellationReason:  order.CancellationReason,
		LineItems:           make([]lineItemView, 0, len(order.LineItems)),
		CreatedAt:           order.CreatedAt,
		ConfirmedAt:         order.ConfirmedAt,
		ProcessingAt:        order.ProcessingAt,
		ShippedAt:           order.ShippedAt,
		DeliveredAt:         order.DeliveredAt,
		CancelledAt:         order.CancelledAt,
	}
	for _, li := range order.LineItems {
		view.LineItems = append(view.LineItems, lineItemView{
			ProductID:      li.ProductID,
			ProductName:    li.ProductName,
			Quantity:       li.Quantity,
			UnitPriceMinor: li.UnitPriceMinor,
			LineTotalMinor: li.LineTotalMinor,
		})
	}
	return view
}

func newOrderViews(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	return views
}
