package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
)

func newTx(
	txType domain.TxType, asset string, amount, valueEUR float64, ts time.Time,
) domain.Transaction {
	return domain.Transaction{
		ID:        asset + ts.String(),
		WalletID:  "w1",
		Hash:      "0xabc",
		Type:      txType,
		Asset:     asset,
		Amount:    decimal.NewFromFloat(amount),
		ValueEUR:  decimal.NewFromFloat(valueEUR),
		Timestamp: ts.UnixMilli(),
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestBasicGain(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "BTC", 1, 20000, date(2024, time.January, 10)),
		newTx(domain.TxTypeSell, "BTC", 1, 30000, date(2024, time.June, 10)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)

	require.Len(t, report.Sales, 1)
	require.True(t, report.Sales[0].GainLoss.Equal(decimal.NewFromInt(10000)))
	require.True(t, report.TotalGains.Equal(decimal.NewFromInt(10000)))
	require.True(t, report.TotalLosses.IsZero())
	require.True(t, report.RemainingAmount("BTC").IsZero())
}

func TestPartialFIFO(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "ETH", 1, 1000, date(2024, time.January, 1)),
		newTx(domain.TxTypeBuy, "ETH", 1, 2000, date(2024, time.February, 1)),
		newTx(domain.TxTypeSell, "ETH", 1.5, 4500, date(2024, time.March, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)

	require.Len(t, report.Sales, 1)
	sale := report.Sales[0]
	require.True(t, sale.CostBasis.Equal(decimal.NewFromInt(2000)), "cost basis %s", sale.CostBasis)
	require.True(t, sale.GainLoss.Equal(decimal.NewFromInt(2500)))
	require.Len(t, sale.LotsConsumed, 2)

	// Lot B keeps 0.5 ETH at 2000/unit.
	remaining := report.RemainingAmount("ETH")
	require.True(t, remaining.Equal(decimal.NewFromFloat(0.5)))
	lots := report.Lots["ETH"]
	require.Len(t, lots, 2)
	require.True(t, lots[0].RemainingAmount.IsZero())
	require.True(t, lots[1].RemainingAmount.Equal(decimal.NewFromFloat(0.5)))
	require.True(t, lots[1].CostPerUnit.Equal(decimal.NewFromInt(2000)))
}

func TestUnknownCostBasis(t *testing.T) {
	// Incoming transfer with no valuation, then a sale: the full proceeds are
	// gain because the basis is unknown, hence zero.
	txs := []domain.Transaction{
		newTx(domain.TxTypeTransfer, "SOL", 1, 0, date(2024, time.January, 1)),
		newTx(domain.TxTypeSell, "SOL", 1, 100, date(2024, time.April, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)

	require.Len(t, report.Sales, 1)
	require.True(t, report.Sales[0].CostBasis.IsZero())
	require.True(t, report.Sales[0].GainLoss.Equal(decimal.NewFromInt(100)))
}

func TestMethodOrdering(t *testing.T) {
	// Costs 30, 10, 20 acquired in that chronological order: the one case
	// where all three methods diverge.
	history := []domain.Transaction{
		newTx(domain.TxTypeBuy, "ADA", 1, 30, date(2024, time.January, 1)),
		newTx(domain.TxTypeBuy, "ADA", 1, 10, date(2024, time.February, 1)),
		newTx(domain.TxTypeBuy, "ADA", 1, 20, date(2024, time.March, 1)),
		newTx(domain.TxTypeSell, "ADA", 2, 200, date(2024, time.April, 1)),
	}

	tests := []struct {
		method    domain.Method
		wantCosts []int64
	}{
		{method: domain.FIFO, wantCosts: []int64{30, 10}},
		{method: domain.LIFO, wantCosts: []int64{20, 10}},
		{method: domain.HIFO, wantCosts: []int64{30, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			report := domain.ComputeTaxReport(history, tt.method)
			require.Len(t, report.Sales, 1)

			consumed := report.Sales[0].LotsConsumed
			require.Len(t, consumed, len(tt.wantCosts))
			for i, want := range tt.wantCosts {
				require.True(t, consumed[i].CostPerUnit.Equal(decimal.NewFromInt(want)),
					"lot %d: got cost per unit %s, want %d", i, consumed[i].CostPerUnit, want)
			}
		})
	}
}

func TestOverSell(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "BTC", 1, 10000, date(2024, time.January, 1)),
		newTx(domain.TxTypeSell, "BTC", 2, 40000, date(2024, time.June, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)

	// The untracked half is costed at zero basis: gain = 40000 - 10000.
	require.Len(t, report.Sales, 1)
	require.True(t, report.Sales[0].CostBasis.Equal(decimal.NewFromInt(10000)))
	require.True(t, report.Sales[0].GainLoss.Equal(decimal.NewFromInt(30000)))
	require.True(t, report.RemainingAmount("BTC").IsZero())
}

func TestLotConservation(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "ETH", 3, 3000, date(2024, time.January, 1)),
		newTx(domain.TxTypeAirdrop, "ETH", 1, 0, date(2024, time.February, 1)),
		newTx(domain.TxTypeSell, "ETH", 1.5, 2000, date(2024, time.March, 1)),
		newTx(domain.TxTypeBuy, "ETH", 2, 2600, date(2024, time.April, 1)),
		newTx(domain.TxTypeSell, "ETH", 0.5, 700, date(2024, time.May, 1)),
	}

	for _, method := range []domain.Method{domain.FIFO, domain.LIFO, domain.HIFO} {
		report := domain.ComputeTaxReport(txs, method)
		// netAcquired - netDisposed = (3+1+2) - (1.5+0.5) = 4
		require.True(t, report.RemainingAmount("ETH").Equal(decimal.NewFromInt(4)),
			"method %s: remaining %s", method, report.RemainingAmount("ETH"))

		for _, lot := range report.Lots["ETH"] {
			require.False(t, lot.RemainingAmount.IsNegative())
			require.True(t, lot.RemainingAmount.LessThanOrEqual(lot.Amount))
		}
	}
}

func TestStakeDoesNotTouchLots(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "DOT", 10, 500, date(2024, time.January, 1)),
		newTx(domain.TxTypeStake, "DOT", 10, 500, date(2024, time.February, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)
	require.Empty(t, report.Sales)
	require.True(t, report.RemainingAmount("DOT").Equal(decimal.NewFromInt(10)))
}

func TestSeparateGainsAndLosses(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "BTC", 1, 30000, date(2024, time.January, 1)),
		newTx(domain.TxTypeSell, "BTC", 1, 20000, date(2024, time.March, 1)),
		newTx(domain.TxTypeBuy, "ETH", 1, 1000, date(2024, time.April, 1)),
		newTx(domain.TxTypeSell, "ETH", 1, 1500, date(2024, time.June, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)

	// Never netted: 500 gain and 10000 loss reported separately.
	require.True(t, report.TotalGains.Equal(decimal.NewFromInt(500)))
	require.True(t, report.TotalLosses.Equal(decimal.NewFromInt(10000)))
}

func TestSecondsTimestampsArePromoted(t *testing.T) {
	buy := newTx(domain.TxTypeBuy, "BTC", 1, 10000, date(2023, time.May, 1))
	buy.Timestamp = date(2023, time.May, 1).Unix() // seconds, not millis
	sell := newTx(domain.TxTypeSell, "BTC", 1, 15000, date(2023, time.June, 1))

	report := domain.ComputeTaxReport([]domain.Transaction{sell, buy}, domain.FIFO)

	// The buy must still sort before the sell.
	require.Len(t, report.Sales, 1)
	require.True(t, report.Sales[0].CostBasis.Equal(decimal.NewFromInt(10000)))
	require.Equal(t, 2023, report.Sales[0].Transaction.Year())
}

func TestFilterByYear(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "BTC", 2, 40000, date(2023, time.January, 1)),
		newTx(domain.TxTypeSell, "BTC", 1, 30000, date(2023, time.June, 1)),
		newTx(domain.TxTypeSell, "BTC", 1, 15000, date(2024, time.June, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)
	require.Len(t, report.Sales, 2)

	y2023 := report.FilterByYear(2023)
	require.Equal(t, 2023, y2023.Year)
	require.Len(t, y2023.Sales, 1)
	require.True(t, y2023.TotalGains.Equal(decimal.NewFromInt(10000)))
	require.True(t, y2023.TotalLosses.IsZero())

	y2024 := report.FilterByYear(2024)
	require.Len(t, y2024.Sales, 1)
	require.True(t, y2024.TotalGains.IsZero())
	require.True(t, y2024.TotalLosses.Equal(decimal.NewFromInt(5000)))
}

func TestFilterByYearIdempotence(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "BTC", 1, 20000, date(2023, time.January, 1)),
		newTx(domain.TxTypeSell, "BTC", 1, 25000, date(2023, time.June, 1)),
	}

	report := domain.ComputeTaxReport(txs, domain.FIFO)
	once := report.FilterByYear(2023)
	twice := once.FilterByYear(2023)

	require.Equal(t, once, twice)
}

func TestDeterministicReplay(t *testing.T) {
	txs := []domain.Transaction{
		newTx(domain.TxTypeBuy, "btc", 1, 20000, date(2024, time.January, 1)),
		newTx(domain.TxTypeBuy, "BTC", 1, 25000, date(2024, time.February, 1)),
		newTx(domain.TxTypeSell, "Btc", 1.2, 36000, date(2024, time.March, 1)),
	}

	first := domain.ComputeTaxReport(txs, domain.HIFO)
	second := domain.ComputeTaxReport(txs, domain.HIFO)

	// Symbols are case-normalized and the replay is pure.
	require.Len(t, first.Lots["BTC"], 2)
	require.True(t, first.TotalGains.Equal(second.TotalGains))
	require.True(t, first.TotalLosses.Equal(second.TotalLosses))
	require.True(t, first.RemainingAmount("BTC").Equal(second.RemainingAmount("BTC")))
}
