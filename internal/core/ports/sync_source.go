package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
)

// SyncSource provides wallet transaction history and current holdings from a
// blockchain explorer or provider API. Implementations live outside the core;
// the transactions they return are expected to be already normalized (unique
// hashes, millisecond timestamps, EUR valuations).
type SyncSource interface {
	// FetchTransactions returns the full transaction history for the wallet.
	FetchTransactions(ctx context.Context, wallet domain.Wallet) ([]domain.Transaction, error)
	// FetchHoldings returns the wallet's current balance per asset symbol.
	FetchHoldings(ctx context.Context, wallet domain.Wallet) (map[string]decimal.Decimal, error)
}
