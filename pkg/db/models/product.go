package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Product is the catalog row the order engine prices and reserves against.
// Stock is only ever mutated through conditional UPDATE statements.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID   uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	SKU        string              `gorm:"column:sku;not null"`
	Name       string              `gorm:"column:name;not null"`
	PriceMinor int64               `gorm:"column:price_minor;not null"`
	Stock      int                 `gorm:"column:stock;not null;default:0;check:chk_products_stock_non_negative,stock >= 0"`
	Status     enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
