package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// minKnownBasis is the threshold below which a remaining cost basis is
// considered unknown rather than genuinely near-zero.
var minKnownBasis = decimal.NewFromFloat(0.01)

// maxGainRatio caps an unrealized gain that exceeds the position's current
// value. This is a defensive guard against bad cost-basis data, not a
// principled accounting rule.
var maxGainRatio = decimal.NewFromFloat(0.5)

// UnrealizedPosition is the paper gain or loss on an asset still held.
type UnrealizedPosition struct {
	Asset              string          `json:"asset"`
	RemainingAmount    decimal.Decimal `json:"remainingAmount"`
	RemainingCostBasis decimal.Decimal `json:"remainingCostBasis"`
	CurrentPrice       decimal.Decimal `json:"currentPrice"`
	CurrentValue       decimal.Decimal `json:"currentValue"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealizedGainLoss"`
	// UnknownBasis is set when the remaining cost basis is too small to be
	// trusted and the gain is reported as zero instead of a misleading number.
	UnknownBasis bool `json:"unknownBasis,omitempty"`
	// Clamped is set when the computed gain exceeded the current value and was
	// capped, a sign of bad input data.
	Clamped bool `json:"clamped,omitempty"`
}

// ComputeUnrealized derives the paper gain per asset still held in the
// report's lots, given current market prices keyed by upper-case symbol.
// Assets without a price quote are skipped.
func ComputeUnrealized(report *TaxReport, prices map[string]decimal.Decimal) []UnrealizedPosition {
	assets := make([]string, 0, len(report.Lots))
	for asset := range report.Lots {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	positions := make([]UnrealizedPosition, 0, len(assets))
	for _, asset := range assets {
		remaining := report.RemainingAmount(asset)
		if !remaining.IsPositive() {
			continue
		}
		price, ok := prices[asset]
		if !ok {
			continue
		}

		remainingBasis := decimal.Zero
		for _, lot := range report.Lots[asset] {
			remainingBasis = remainingBasis.Add(lot.RemainingAmount.Mul(lot.CostPerUnit))
		}

		pos := UnrealizedPosition{
			Asset:              asset,
			RemainingAmount:    remaining,
			RemainingCostBasis: remainingBasis,
			CurrentPrice:       price,
			CurrentValue:       remaining.Mul(price),
		}

		switch {
		case remainingBasis.LessThan(minKnownBasis):
			// No reliable historical cost: report zero rather than the full
			// current value as gain.
			pos.UnrealizedGainLoss = decimal.Zero
			pos.UnknownBasis = true
		default:
			gain := pos.CurrentValue.Sub(remainingBasis)
			// Exceeding the current value takes a negative basis, which the
			// unknown-basis branch above already intercepts; the cap only
			// fires if that ordering ever changes.
			if gain.GreaterThan(pos.CurrentValue) {
				gain = pos.CurrentValue.Mul(maxGainRatio)
				pos.Clamped = true
			}
			pos.UnrealizedGainLoss = gain
		}

		positions = append(positions, pos)
	}

	return positions
}

// HoldingsDiscrepancy is a difference between what the lots say is still held
// and what the sync layer reports. Drift is a legitimate signal (untracked
// inflows, missed transactions) and is surfaced, never silently hidden.
type HoldingsDiscrepancy struct {
	Asset        string          `json:"asset"`
	LotAmount    decimal.Decimal `json:"lotAmount"`
	SyncedAmount decimal.Decimal `json:"syncedAmount"`
	Diff         decimal.Decimal `json:"diff"`
}

// CompareHoldings reconciles the report's lot remainders against holdings
// reported by the sync layer and returns the differing assets.
func CompareHoldings(report *TaxReport, synced map[string]decimal.Decimal) []HoldingsDiscrepancy {
	seen := map[string]bool{}
	assets := make([]string, 0, len(report.Lots)+len(synced))
	for asset := range report.Lots {
		seen[asset] = true
		assets = append(assets, asset)
	}
	for asset := range synced {
		if !seen[asset] {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)

	discrepancies := []HoldingsDiscrepancy{}
	for _, asset := range assets {
		fromLots := report.RemainingAmount(asset)
		fromSync := synced[asset]
		if fromLots.Equal(fromSync) {
			continue
		}
		discrepancies = append(discrepancies, HoldingsDiscrepancy{
			Asset:        asset,
			LotAmount:    fromLots,
			SyncedAmount: fromSync,
			Diff:         fromSync.Sub(fromLots),
		})
	}
	return discrepancies
}
