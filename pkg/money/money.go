// Package money turns the int64 minor units (paise) used for storage and
// gateway calls into major-unit decimals, and applies rates to them.
package money

import (
	"github.com/shopspring/decimal"
)

const minorExponent = 2

var bpsDivisor = decimal.NewFromInt(10000)

// FromMinor converts minor units into a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorExponent)
}

// ApplyBps returns round_half_up(amount * bps / 10000) in minor units.
func ApplyBps(amountMinor, bps int64) int64 {
	return ApplyRate(amountMinor, decimal.NewFromInt(bps).Div(bpsDivisor))
}

// ApplyRate returns round_half_up(amount * rate) in minor units.
func ApplyRate(amountMinor int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amountMinor).Mul(rate).Round(0).IntPart()
}
