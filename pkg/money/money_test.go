package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromMinorRoundTrip(t *testing.T) {
	require.True(t, FromMinor(236000).Equal(decimal.RequireFromString("2360")))
	require.Equal(t, "12.34", FromMinor(1234).StringFixed(2))
}

func TestApplyBps(t *testing.T) {
	// 18% of 2000.00
	require.Equal(t, int64(36000), ApplyBps(200000, 1800))
	// 18% of 0.05 rounds half up to 0.01
	require.Equal(t, int64(1), ApplyBps(5, 1800))
	require.Equal(t, int64(0), ApplyBps(0, 1800))
}

func TestApplyRate(t *testing.T) {
	// 1.5% of 333.33 = 4.99995 -> 5.00
	require.Equal(t, int64(500), ApplyRate(33333, decimal.RequireFromString("0.015")))
	require.Equal(t, int64(2000), ApplyRate(100000, decimal.RequireFromString("0.02")))
}
