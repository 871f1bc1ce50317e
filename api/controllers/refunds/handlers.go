package refunds

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalrefunds "github.com/angelmondragon/bazaar-backend/internal/refunds"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type requestsList struct {
	Requests   []requestView `json:"requests"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type refundsList struct {
	Refunds    []refundView `json:"refunds"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CreateRequest opens a refund request for a delivered order.
func CreateRequest(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), principal, internalrefunds.RequestInput{
			OrderID:     payload.OrderID,
			AmountMinor: payload.AmountMinor,
			Reason:      strings.TrimSpace(payload.Reason),
			Category:    enums.RefundCategory(payload.Category),
			Notes:       payload.Notes,
			Attachments: payload.Attachments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRequestView(request))
	}
}

func ListRequests(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseRefundRequestStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListRequests(r.Context(), principal, internalrefunds.RequestFilters{Status: status, OrderID: orderID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := requestsList{Requests: make([]requestView, 0, len(list.Requests)), NextCursor: list.NextCursor}
		for i := range list.Requests {
			out.Requests = append(out.Requests, newRequestView(&list.Requests[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func RequestDetail(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.RefundRequest, error) {
		return svc.GetRequest(r.Context(), principal, id)
	})
}

// ApproveRequest accepts a pending request. Only the first decision sticks.
func ApproveRequest(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.RefundRequest, error) {
		var payload approveBody
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				return nil, err
			}
		}
		return svc.Approve(r.Context(), principal, id, payload.AdminNotes)
	})
}

func RejectRequest(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.RefundRequest, error) {
		var payload rejectBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), principal, id, strings.TrimSpace(payload.Reason), payload.AdminNotes)
	})
}

// Initiate sends an accepted request to the gateway. A gateway failure still
// leaves a failed refund that can be retried.
func Initiate(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiateBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Initiate(r.Context(), principal, internalrefunds.InitiateInput{
			RefundRequestID:  payload.RefundRequestID,
			GatewayPaymentID: strings.TrimSpace(payload.GatewayPaymentID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRefundView(refund))
	}
}

func ListRefunds(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseRefundStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListRefunds(r.Context(), principal, internalrefunds.RefundFilters{Status: status, OrderID: orderID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := refundsList{Refunds: make([]refundView, 0, len(list.Refunds)), NextCursor: list.NextCursor}
		for i := range list.Refunds {
			out.Refunds = append(out.Refunds, newRefundView(&list.Refunds[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func RefundDetail(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRefund(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
		return svc.GetRefund(r.Context(), principal, id)
	})
}

func Retry(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRefund(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
		return svc.Retry(r.Context(), principal, id)
	})
}

func AdminComplete(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRefund(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
		return svc.MarkCompleted(r.Context(), principal, id)
	})
}

func AdminFail(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return withRefund(svc, logg, func(r *http.Request, principal auth.Principal, id uuid.UUID) (*models.Refund, error) {
		var payload failBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.MarkFailed(r.Context(), principal, id, strings.TrimSpace(payload.Reason))
	})
}

// AdminBulkStatus applies one terminal status to many refunds; each id succeeds or is skipped on its own.
func AdminBulkStatus(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkStatusBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkUpdateStatus(r.Context(), principal, payload.IDs, enums.RefundStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminDelete(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), principal, refundID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func withRequest(svc internalrefunds.Service, logg *logger.Logger, action func(*http.Request, auth.Principal, uuid.UUID) (*models.RefundRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := action(r, principal, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRequestView(request))
	}
}

func withRefund(svc internalrefunds.Service, logg *logger.Logger, action func(*http.Request, auth.Principal, uuid.UUID) (*models.Refund, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refundID, err := validators.ParseURLUUID(r, "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := action(r, principal, refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundView(refund))
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}
