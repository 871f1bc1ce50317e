package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository is append-only: rows are inserted and read, never changed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID, types ...enums.LedgerEventType) ([]models.LedgerEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return gormRepository{db: db}
}

func (r gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return gormRepository{db: tx}
}

func (r gormRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByOrderID returns the order's events oldest first, optionally limited to types.
func (r gormRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID, types ...enums.LedgerEventType) ([]models.LedgerEvent, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	var events []models.LedgerEvent
	err := query.Order("created_at ASC").Order("id ASC").Find(&events).Error
	return events, err
}
