package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement tied to an order.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID  uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	VendorID    uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	ActorUserID uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Type        enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	AmountMinor int64                 `gorm:"column:amount_minor;not null"`
	ReferenceID *uuid.UUID            `gorm:"column:reference_id;type:uuid"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
