package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Method defines the lot consumption order used when a disposal is matched
// against earlier acquisitions.
type Method int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO Method = iota
	// LIFO (Last-In, First-Out) consumes the newest lots first.
	LIFO
	// HIFO (Highest-In, First-Out) consumes the most expensive lots first.
	HIFO
)

func (m Method) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HIFO:
		return "hifo"
	default:
		return "unknown"
	}
}

// ParseMethod parses a string into a cost-basis Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "hifo":
		return HIFO, nil
	default:
		return FIFO, ErrUnknownMethod
	}
}

// LotConsumption records how much of a single lot a sale consumed.
type LotConsumption struct {
	LotID       string          `json:"lotId"`
	Amount      decimal.Decimal `json:"amount"`
	CostPerUnit decimal.Decimal `json:"costPerUnit"`
	Cost        decimal.Decimal `json:"cost"`
}

// SaleResult is the realized outcome of one disposal. Derived, never
// persisted: recomputed on demand from the transaction history.
type SaleResult struct {
	Transaction  Transaction      `json:"transaction"`
	Proceeds     decimal.Decimal  `json:"proceeds"`
	CostBasis    decimal.Decimal  `json:"costBasis"`
	GainLoss     decimal.Decimal  `json:"gainLoss"`
	LotsConsumed []LotConsumption `json:"lotsConsumed"`
}

// TaxReport is the result of replaying the whole transaction history under a
// consumption method. Gains and losses are accumulated separately and never
// netted here, so downstream consumers can apply jurisdiction-specific
// netting and carry-forward rules independently.
type TaxReport struct {
	Method      Method                     `json:"method"`
	Year        int                        `json:"year,omitempty"`
	Sales       []SaleResult               `json:"sales"`
	TotalGains  decimal.Decimal            `json:"totalGains"`
	TotalLosses decimal.Decimal            `json:"totalLosses"`
	Lots        map[string][]*CostBasisLot `json:"lots"`
}

// ComputeTaxReport replays the transaction history in chronological order and
// returns realized results per disposal plus the final lot state per asset.
// Pure: same inputs and method always produce the same outputs.
//
// Malformed individual transactions never abort the computation; a missing
// EUR valuation is treated as zero and surfaces through the zero-cost-basis
// accounting, since tax estimates must degrade gracefully.
func ComputeTaxReport(txs []Transaction, method Method) *TaxReport {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].NormalizedTimestamp() < ordered[j].NormalizedTimestamp()
	})

	report := &TaxReport{
		Method:      method,
		Sales:       []SaleResult{},
		TotalGains:  decimal.Zero,
		TotalLosses: decimal.Zero,
		Lots:        map[string][]*CostBasisLot{},
	}

	for _, tx := range ordered {
		asset := tx.NormalizedAsset()
		if len(asset) <= 0 || !tx.Amount.IsPositive() {
			continue
		}

		switch {
		case tx.Type.IsAcquisition():
			report.Lots[asset] = append(report.Lots[asset], newLotFromAcquisition(tx))
		case tx.Type == TxTypeSell:
			sale := consumeLots(tx, report.Lots[asset], method)
			report.Sales = append(report.Sales, sale)
			if sale.GainLoss.IsPositive() {
				report.TotalGains = report.TotalGains.Add(sale.GainLoss)
			} else {
				report.TotalLosses = report.TotalLosses.Add(sale.GainLoss.Abs())
			}
		case tx.Type == TxTypeStake:
			// Staking does not move lots. Income recognition for rewards
			// happens outside lot consumption.
		}
	}

	return report
}

// consumeLots matches a sale against the available lots in method order.
// If the sold amount exceeds what the lots can cover (untracked external
// inflow), the shortfall is costed at zero basis: this inflates the realized
// gain, which is the conservative, tax-maximizing treatment.
func consumeLots(tx Transaction, lots []*CostBasisLot, method Method) SaleResult {
	available := make([]*CostBasisLot, 0, len(lots))
	for _, lot := range lots {
		if lot.RemainingAmount.IsPositive() {
			available = append(available, lot)
		}
	}

	switch method {
	case LIFO:
		sort.SliceStable(available, func(i, j int) bool {
			return available[i].Timestamp > available[j].Timestamp
		})
	case HIFO:
		sort.SliceStable(available, func(i, j int) bool {
			return available[i].CostPerUnit.GreaterThan(available[j].CostPerUnit)
		})
	default:
		sort.SliceStable(available, func(i, j int) bool {
			return available[i].Timestamp < available[j].Timestamp
		})
	}

	proceeds := decimal.Zero
	if tx.ValueEUR.IsPositive() {
		proceeds = tx.ValueEUR
	}

	sale := SaleResult{
		Transaction:  tx,
		Proceeds:     proceeds,
		CostBasis:    decimal.Zero,
		LotsConsumed: []LotConsumption{},
	}

	toSell := tx.Amount
	for _, lot := range available {
		if !toSell.IsPositive() {
			break
		}
		taken, cost := lot.consume(toSell)
		toSell = toSell.Sub(taken)
		sale.CostBasis = sale.CostBasis.Add(cost)
		sale.LotsConsumed = append(sale.LotsConsumed, LotConsumption{
			LotID:       lot.ID,
			Amount:      taken,
			CostPerUnit: lot.CostPerUnit,
			Cost:        cost,
		})
	}

	sale.GainLoss = sale.Proceeds.Sub(sale.CostBasis)
	return sale
}

// FilterByYear re-scopes the report to sales whose transaction falls in the
// target UTC year and recomputes the totals accordingly. Idempotent. The lot
// state is the end-of-history state and is carried over unchanged.
func (r *TaxReport) FilterByYear(year int) *TaxReport {
	filtered := &TaxReport{
		Method:      r.Method,
		Year:        year,
		Sales:       []SaleResult{},
		TotalGains:  decimal.Zero,
		TotalLosses: decimal.Zero,
		Lots:        r.Lots,
	}

	for _, sale := range r.Sales {
		if sale.Transaction.Year() != year {
			continue
		}
		filtered.Sales = append(filtered.Sales, sale)
		if sale.GainLoss.IsPositive() {
			filtered.TotalGains = filtered.TotalGains.Add(sale.GainLoss)
		} else {
			filtered.TotalLosses = filtered.TotalLosses.Add(sale.GainLoss.Abs())
		}
	}

	return filtered
}

// RemainingAmount returns how much of the asset is still held across the
// report's lots.
func (r *TaxReport) RemainingAmount(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range r.Lots[strings.ToUpper(asset)] {
		total = total.Add(lot.RemainingAmount)
	}
	return total
}

// Holdings returns the remaining amount per asset, skipping exhausted ones.
func (r *TaxReport) Holdings() map[string]decimal.Decimal {
	holdings := map[string]decimal.Decimal{}
	for asset := range r.Lots {
		if remaining := r.RemainingAmount(asset); remaining.IsPositive() {
			holdings[asset] = remaining
		}
	}
	return holdings
}
