package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

type deadLetterPager interface {
	Page(ctx context.Context, reason *enums.OutboxDLQErrorReason, params pagination.Params) (*outbox.DeadLetters, error)
}

type deadLetterView struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   uuid.UUID                  `json:"aggregate_id"`
	Reason        enums.OutboxDLQErrorReason `json:"reason"`
	Error         *string                    `json:"error,omitempty"`
	Attempts      int                        `json:"attempts"`
	Payload       json.RawMessage            `json:"payload"`
	FailedAt      time.Time                  `json:"failed_at"`
}

type deadLetterList struct {
	Entries    []deadLetterView `json:"entries"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// AdminDeadLetters pages through outbox events the publisher gave up on.
func AdminDeadLetters(dlq deadLetterPager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dlq == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := validators.ParseQueryEnum(r, "reason", enums.ParseOutboxDLQErrorReason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := dlq.Page(r.Context(), reason, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			if errors.Is(err, pagination.ErrInvalidCursor) {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]deadLetterView, 0, len(page.Entries))
		for _, entry := range page.Entries {
			views = append(views, deadLetterView{
				ID:            entry.ID,
				EventID:       entry.EventID,
				EventType:     entry.EventType,
				AggregateType: entry.AggregateType,
				AggregateID:   entry.AggregateID,
				Reason:        entry.ErrorReason,
				Error:         entry.ErrorMessage,
				Attempts:      entry.AttemptCount,
				Payload:       entry.Payload,
				FailedAt:      entry.FailedAt,
			})
		}
		responses.WriteSuccess(w, deadLetterList{Entries: views, NextCursor: page.NextCursor})
	}
}
