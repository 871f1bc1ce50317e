package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type ordersList struct {
	Orders     []internalorders.OrderSummary `json:"orders"`
	NextCursor string                        `json:"next_cursor,omitempty"`
}

// Create places one order per vendor from the request items or the caller's cart.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateFromCart(r.Context(), principal, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders": newOrderViews(created)})
	}
}

// List returns customer-, vendor- or admin-perspective pages depending on the caller's role.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.List(r.Context(), principal, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ordersList{Orders: list.Orders, NextCursor: list.NextCursor})
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		return svc.Get(r.Context(), principal, id)
	})
}

func Confirm(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		return svc.Confirm(r.Context(), principal, id)
	})
}

func Process(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		return svc.Process(r.Context(), principal, id)
	})
}

// Ship accepts an optional carrier and tracking number; an empty body is allowed.
func Ship(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		var payload shipRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				return nil, err
			}
		}
		return svc.Ship(r.Context(), principal, id, internalorders.ShipInput{
			Carrier:        trimmed(payload.Carrier),
			TrackingNumber: trimmed(payload.TrackingNumber),
		})
	})
}

func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		return svc.Deliver(r.Context(), principal, id)
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		var payload cancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				return nil, err
			}
		}
		return svc.Cancel(r.Context(), principal, id, payload.Reason)
	})
}

// UpdateAddress replaces the shipping and/or billing address of a pending order.
func UpdateAddress(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		if payload.ShippingAddress == nil && payload.BillingAddress == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping_address or billing_address required")
		}
		return svc.UpdateAddress(r.Context(), principal, id, internalorders.AddressInput{
			ShippingAddress: payload.ShippingAddress,
			BillingAddress:  payload.BillingAddress,
		})
	})
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), principal, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type orderAction func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Order, error)

func withOrder(svc internalorders.Service, logg *logger.Logger, action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := action(r.WithContext(ctx), principal, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	status, err := validators.ParseQueryEnum(r, "order_status", enums.ParseOrderStatus)
	if err != nil {
		return filters, err
	}
	paymentStatus, err := validators.ParseQueryEnum(r, "payment_status", enums.ParseOrderPaymentStatus)
	if err != nil {
		return filters, err
	}
	from, err := validators.ParseQueryTime(r, "date_from")
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryTime(r, "date_to")
	if err != nil {
		return filters, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to must not be before date_from")
	}

	filters.Status = status
	filters.PaymentStatus = paymentStatus
	filters.DateFrom = from
	filters.DateTo = to
	filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	return filters, nil
}
