package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostBasisLot is a discrete acquisition record of an asset, tracked for
// cost-basis matching. One lot per acquisition event; lots are never merged
// or re-created, only their RemainingAmount is decremented by disposals.
type CostBasisLot struct {
	ID              string          `json:"id"`
	Asset           string          `json:"asset"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	CostPerUnit     decimal.Decimal `json:"costPerUnit"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	Timestamp       int64           `json:"timestamp"`
	SourceHash      string          `json:"sourceHash"`
}

// newLotFromAcquisition creates the lot for an acquisition transaction.
// A zero or missing EUR valuation yields a zero cost per unit, meaning
// "unknown cost basis", not "acquired for free".
func newLotFromAcquisition(tx Transaction) *CostBasisLot {
	costPerUnit := decimal.Zero
	if tx.ValueEUR.IsPositive() && tx.Amount.IsPositive() {
		costPerUnit = tx.ValueEUR.Div(tx.Amount)
	}
	totalCost := decimal.Zero
	if tx.ValueEUR.IsPositive() {
		totalCost = tx.ValueEUR
	}

	return &CostBasisLot{
		ID:              uuid.NewString(),
		Asset:           tx.NormalizedAsset(),
		Amount:          tx.Amount,
		RemainingAmount: tx.Amount,
		CostPerUnit:     costPerUnit,
		TotalCost:       totalCost,
		Timestamp:       tx.NormalizedTimestamp(),
		SourceHash:      tx.Hash,
	}
}

// consume takes up to wanted units from the lot and returns how much was
// actually taken and its cost. RemainingAmount never goes negative.
func (l *CostBasisLot) consume(wanted decimal.Decimal) (taken, cost decimal.Decimal) {
	taken = wanted
	if l.RemainingAmount.LessThan(wanted) {
		taken = l.RemainingAmount
	}
	l.RemainingAmount = l.RemainingAmount.Sub(taken)
	return taken, taken.Mul(l.CostPerUnit)
}
