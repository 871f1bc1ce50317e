package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

type cartItemView struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cartView struct {
	Items      []cartItemView `json:"items"`
	TotalUnits int            `json:"total_units"`
}

func newCartItemView(item models.CartItem) cartItemView {
	return cartItemView{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UpdatedAt: item.UpdatedAt,
	}
}

func newCartView(items []models.CartItem) cartView {
	view := cartView{Items: make([]cartItemView, 0, len(items))}
	for _, item := range items {
		view.Items = append(view.Items, newCartItemView(item))
		view.TotalUnits += item.Quantity
	}
	return view
}
