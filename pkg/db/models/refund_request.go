package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// RefundRequest is the customer's ask to reverse a delivered order. One per order.
type RefundRequest struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CustomerID      uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID        uuid.UUID                 `gorm:"column:vendor_id;type:uuid;not null;index"`
	AmountMinor     int64                     `gorm:"column:amount_minor;not null"`
	Reason          string                    `gorm:"column:reason;not null"`
	Category        enums.RefundCategory      `gorm:"column:category;type:text;not null"`
	Notes           *string                   `gorm:"column:notes"`
	Attachments     []string                  `gorm:"column:attachments;type:jsonb;serializer:json"`
	Status          enums.RefundRequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ProcessedBy     *uuid.UUID                `gorm:"column:processed_by;type:uuid"`
	ProcessedAt     *time.Time                `gorm:"column:processed_at"`
	AdminNotes      *string                   `gorm:"column:admin_notes"`
	RejectionReason *string                   `gorm:"column:rejection_reason"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RefundRequest) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
