package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type stockAdjuster interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
}

type stockAdjustRequest struct {
	Delta  int    `json:"delta" validate:"required,min=-100000,max=100000"`
	Reason string `json:"reason" validate:"max=200"`
}

type productStockView struct {
	ID     uuid.UUID           `json:"id"`
	SKU    string              `json:"sku"`
	Name   string              `json:"name"`
	Stock  int                 `json:"stock"`
	Status enums.ProductStatus `json:"status"`
}

// AdminAdjustStock applies a signed stock correction. Results below zero are rejected.
func AdminAdjustStock(catalog stockAdjuster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := catalog.AdjustStock(r.Context(), productID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"product_id": productID.String(),
				"delta":      payload.Delta,
				"reason":     payload.Reason,
				"stock":      product.Stock,
			})
			logg.Info(ctx, "catalog.stock_adjusted")
		}

		responses.WriteSuccess(w, productStockView{
			ID:     product.ID,
			SKU:    product.SKU,
			Name:   product.Name,
			Stock:  product.Stock,
			Status: product.Status,
		})
	}
}
