package miles

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

func TestMilesForCash_RoundsUp(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		amount string
		want   int64
	}{
		{"20.00", 2000},
		{"0.01", 1},
		{"19.999", 2000}, // fractional cents still round up
		{"0", 0},
		{"123.45", 12345},
	}

	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, cfg.MilesForCash(amount), "amount %s", tc.amount)
	}
}

func TestMilesForCash_NeverBelowExactProduct(t *testing.T) {
	cfg := Config{CashToMilesRate: 100, EarnRate: 10}

	for cents := int64(1); cents <= 500; cents += 7 {
		amount := CashFromCents(cents)
		got := cfg.MilesForCash(amount)
		exact := amount.Mul(decimal.NewFromInt(cfg.CashToMilesRate))
		assert.True(t, decimal.NewFromInt(got).GreaterThanOrEqual(exact),
			"milesForCash(%s)=%d below exact %s", amount, got, exact)
	}
}

func TestCashForMiles_ExactValue(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.CashForMiles(500).Equal(decimal.RequireFromString("5")))
	assert.True(t, cfg.CashForMiles(2000).Equal(decimal.RequireFromString("20")))
	assert.True(t, cfg.CashForMiles(1).Equal(decimal.RequireFromString("0.01")))
}

func TestCentsFromCash_TruncatesTowardMember(t *testing.T) {
	// 100 miles at a rate of 30 are worth 3.333...; the member owes less,
	// never more, after truncation.
	cfg := Config{CashToMilesRate: 30, EarnRate: 10}

	value := cfg.CashForMiles(100)
	total := decimal.RequireFromString("10.00")
	due := CentsFromCash(total.Sub(value))
	assert.Equal(t, int64(666), due)
}

func TestMilesEarnedForCash_RoundsDown(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, int64(200), cfg.MilesEarnedForCash(decimal.RequireFromString("20.00")))
	assert.Equal(t, int64(199), cfg.MilesEarnedForCash(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(0), cfg.MilesEarnedForCash(decimal.RequireFromString("0.09")))
}

func TestTierFor(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		total int64
		want  domain.Tier
	}{
		{0, domain.TierBasic},
		{24999, domain.TierBasic},
		{25000, domain.TierSilver},
		{49999, domain.TierSilver},
		{50000, domain.TierGold},
		{99999, domain.TierGold},
		{100000, domain.TierPlatinum},
		{5000000, domain.TierPlatinum},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, cfg.TierFor(tc.total), "total %d", tc.total)
	}
}

func TestPartialRedemptionScenario(t *testing.T) {
	// Member with 500 miles buys a 20.00 ticket: needs 2000 miles, has 500,
	// so pays 15.00 cash and burns all 500 miles.
	cfg := DefaultConfig()

	total := decimal.RequireFromString("20.00")
	need := cfg.MilesForCash(total)
	assert.Equal(t, int64(2000), need)

	available := int64(500)
	assert.Less(t, available, need)

	due := CentsFromCash(total.Sub(cfg.CashForMiles(available)))
	assert.Equal(t, int64(1500), due)
}
