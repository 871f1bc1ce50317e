package orders

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// Totals is the priced breakdown of one order, all in minor units.
type Totals struct {
	SubtotalMinor    int64
	TaxMinor         int64
	ShippingFeeMinor int64
	DiscountMinor    int64
	TotalMinor       int64
}

// Price applies the tax rate and shipping rule to a subtotal. discount is
// clamped to [0, subtotal].
func Price(cfg config.PricingConfig, subtotalMinor, discountMinor int64) Totals {
	if discountMinor < 0 {
		discountMinor = 0
	}
	if discountMinor > subtotalMinor {
		discountMinor = subtotalMinor
	}
	shipping := cfg.FlatShippingFee
	if subtotalMinor > cfg.FreeShippingThreshold {
		shipping = 0
	}
	tax := money.ApplyBps(subtotalMinor, cfg.TaxRateBps)
	return Totals{
		SubtotalMinor:    subtotalMinor,
		TaxMinor:         tax,
		ShippingFeeMinor: shipping,
		DiscountMinor:    discountMinor,
		TotalMinor:       subtotalMinor + tax + shipping - discountMinor,
	}
}

// NewOrderNumber returns ORD<unix millis><4 random digits>.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%d%04d", now.UnixMilli(), rand.IntN(10000))
}
