package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is an order-level percentage discount.
type Coupon struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code             string     `gorm:"column:code;not null;uniqueIndex"`
	PercentOffBps    int64      `gorm:"column:percent_off_bps;not null"`
	MaxDiscountMinor *int64     `gorm:"column:max_discount_minor"`
	Active           bool       `gorm:"column:active;not null;default:true"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
