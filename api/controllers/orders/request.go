package orders

import (
	"strings"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type orderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type createOrderRequest struct {
	Items               []orderItemRequest `json:"items,omitempty" validate:"omitempty,max=100,dive"`
	ShippingAddress     types.Address      `json:"shipping_address"`
	BillingAddress      *types.Address     `json:"billing_address,omitempty" validate:"omitempty"`
	SpecialInstructions *string            `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
	CouponCode          *string            `json:"coupon_code,omitempty" validate:"omitempty,max=40"`
	PaymentReference    *string            `json:"payment_reference,omitempty" validate:"omitempty,max=120"`
}

func (r createOrderRequest) toInput() internalorders.CreateInput {
	input := internalorders.CreateInput{
		ShippingAddress:     r.ShippingAddress,
		BillingAddress:      r.BillingAddress,
		SpecialInstructions: trimmed(r.SpecialInstructions),
		CouponCode:          trimmed(r.CouponCode),
		PaymentReference:    trimmed(r.PaymentReference),
	}
	// A missing items array means "order my cart"; an explicit empty one is rejected by the service.
	if r.Items != nil {
		input.Items = make([]internalorders.LineInput, 0, len(r.Items))
		for _, item := range r.Items {
			input.Items = append(input.Items, internalorders.LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	return input
}

type shipRequest struct {
	Carrier        *string `json:"carrier,omitempty" validate:"omitempty,max=80"`
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=120"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type addressRequest struct {
	ShippingAddress *types.Address `json:"shipping_address,omitempty" validate:"omitempty"`
	BillingAddress  *types.Address `json:"billing_address,omitempty" validate:"omitempty"`
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
