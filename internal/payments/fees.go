package payments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

var convenienceRates = map[enums.PaymentMethod]decimal.Decimal{
	enums.PaymentMethodUPI:        decimal.Zero,
	enums.PaymentMethodCard:       decimal.RequireFromString("0.02"),
	enums.PaymentMethodNetbanking: decimal.RequireFromString("0.015"),
	enums.PaymentMethodWallet:     decimal.RequireFromString("0.01"),
}

// Breakdown is the amount charged for a payment, in minor units.
type Breakdown struct {
	AmountMinor         int64
	ConvenienceFeeMinor int64
	TaxMinor            int64
	TotalMinor          int64
}

// Quote prices a payment: fee = method rate x amount, tax = taxBps of amount.
func Quote(method enums.PaymentMethod, amountMinor, taxBps int64) Breakdown {
	rate, ok := convenienceRates[method]
	if !ok {
		rate = decimal.Zero
	}
	fee := money.ApplyRate(amountMinor, rate)
	tax := money.ApplyBps(amountMinor, taxBps)
	return Breakdown{
		AmountMinor:         amountMinor,
		ConvenienceFeeMinor: fee,
		TaxMinor:            tax,
		TotalMinor:          amountMinor + fee + tax,
	}
}
