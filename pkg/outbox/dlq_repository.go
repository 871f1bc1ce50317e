package outbox

import (
	"context"
	"errors"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

// DeadLetters is one page of parked events, newest first.
type DeadLetters struct {
	Entries    []models.OutboxDLQ
	NextCursor string
}

// DLQRepository owns outbox_dlq: the publisher parks events there once it
// stops retrying them, and operators page through them.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx parks entry inside the publisher's claim transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		clipped := clipUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

// Page lists parked events, optionally narrowed to a single reason.
func (r *DLQRepository) Page(ctx context.Context, reason *enums.OutboxDLQErrorReason, params pagination.Params) (*DeadLetters, error) {
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if reason != nil {
		query = query.Where("error_reason = ?", *reason)
	}
	query, err := pagination.Keyset(query, params)
	if err != nil {
		return nil, err
	}
	var rows []models.OutboxDLQ
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(d models.OutboxDLQ) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return &DeadLetters{Entries: rows, NextCursor: next}, nil
}

// clipUTF8 cuts s to at most n bytes without splitting a rune.
func clipUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
