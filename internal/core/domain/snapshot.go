package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a point-in-time valuation of all holdings, kept as a
// history for charting and drift analysis.
type PortfolioSnapshot struct {
	ID            string                     `json:"id"`
	Timestamp     int64                      `json:"timestamp"`
	TotalValueEUR decimal.Decimal            `json:"totalValueEur"`
	Holdings      map[string]decimal.Decimal `json:"holdings"`
}

// NewPortfolioSnapshot values the given holdings with the given prices and
// returns the snapshot. Assets without a quote contribute nothing to the
// total but stay listed in the holdings map.
func NewPortfolioSnapshot(
	holdings map[string]decimal.Decimal, prices map[string]decimal.Decimal,
) *PortfolioSnapshot {
	total := decimal.Zero
	for asset, amount := range holdings {
		if price, ok := prices[asset]; ok {
			total = total.Add(amount.Mul(price))
		}
	}

	return &PortfolioSnapshot{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UnixMilli(),
		TotalValueEUR: total,
		Holdings:      holdings,
	}
}
