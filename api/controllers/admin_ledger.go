package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type ledgerReader interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	Balance(ctx context.Context, orderID uuid.UUID) (*ledger.Balance, error)
}

type ledgerEventView struct {
	ID          uuid.UUID             `json:"id"`
	Type        enums.LedgerEventType `json:"type"`
	AmountMinor int64                 `json:"amount_minor"`
	ReferenceID *uuid.UUID            `json:"reference_id,omitempty"`
	ActorUserID *uuid.UUID            `json:"actor_user_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// AdminOrderLedger shows an order's money trail and its running balance.
func AdminOrderLedger(reader ledgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reader == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := reader.ListByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger"))
			return
		}
		balance, err := reader.Balance(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger"))
			return
		}

		views := make([]ledgerEventView, 0, len(events))
		for _, e := range events {
			view := ledgerEventView{ID: e.ID, Type: e.Type, AmountMinor: e.AmountMinor, ReferenceID: e.ReferenceID, CreatedAt: e.CreatedAt}
			if e.ActorUserID != uuid.Nil {
				actor := e.ActorUserID
				view.ActorUserID = &actor
			}
			views = append(views, view)
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"events":   views,
			"balance":  balance,
		})
	}
}
