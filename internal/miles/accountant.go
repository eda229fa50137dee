// Package miles holds the pure arithmetic of the loyalty currency:
// cash/miles conversions, earn computation and tier classification.
// Nothing in here touches storage.
package miles

import (
	"github.com/shopspring/decimal"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

// Config carries the conversion rates and tier thresholds. Rates are
// expressed as points per unit of cash.
type Config struct {
	CashToMilesRate int64   // points needed to cover one unit of cash
	EarnRate        int64   // points earned per unit of cash spent
	TierThresholds  []int64 // ascending lower bounds for SILVER, GOLD, PLATINUM
}

func DefaultConfig() Config {
	return Config{
		CashToMilesRate: 100,
		EarnRate:        10,
		TierThresholds:  []int64{25000, 50000, 100000},
	}
}

// MilesForCash returns the points needed to cover the given cash amount.
// Rounds up: a partial redemption may never come out free.
func (c Config) MilesForCash(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(c.CashToMilesRate)).Ceil().IntPart()
}

// CashForMiles returns the exact cash value of the given miles. Callers
// truncate at money boundaries only when issuing a final price.
func (c Config) CashForMiles(miles int64) decimal.Decimal {
	return decimal.NewFromInt(miles).Div(decimal.NewFromInt(c.CashToMilesRate))
}

// MilesEarnedForCash returns the points earned by spending the given cash
// amount. Rounds down.
func (c Config) MilesEarnedForCash(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(c.EarnRate)).Floor().IntPart()
}

// TierFor classifies lifetime miles into one of the four bands. The top
// band is open-ended.
func (c Config) TierFor(totalMiles int64) domain.Tier {
	tiers := []domain.Tier{domain.TierSilver, domain.TierGold, domain.TierPlatinum}
	tier := domain.TierBasic
	for i, threshold := range c.TierThresholds {
		if i >= len(tiers) {
			break
		}
		if totalMiles >= threshold {
			tier = tiers[i]
		}
	}
	return tier
}

// CashFromCents lifts an integer cent amount into a two-place decimal.
func CashFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsFromCash truncates a cash amount to whole cents. Truncation at the
// money boundary always lands in the member's favor.
func CentsFromCash(amount decimal.Decimal) int64 {
	return amount.Truncate(2).Mul(decimal.NewFromInt(100)).IntPart()
}
