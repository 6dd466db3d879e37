package application

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
)

// TransactionService manages the unified transaction ledger: manual entries,
// provider sync and holdings derived from the ledger.
type TransactionService struct {
	store      *securestore.SecureStore
	accountSvc *AccountService
	syncSource ports.SyncSource
}

func NewTransactionService(
	store *securestore.SecureStore,
	accountSvc *AccountService,
	syncSource ports.SyncSource,
) *TransactionService {
	return &TransactionService{
		store:      store,
		accountSvc: accountSvc,
		syncSource: syncSource,
	}
}

// ListTransactions returns the whole ledger sorted by time, oldest first.
func (s *TransactionService) ListTransactions() ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.store.Read(domain.StoreKeyTransactions, &txs); err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].NormalizedTimestamp() < txs[j].NormalizedTimestamp()
	})
	return txs, nil
}

// WalletTransactions returns the ledger entries belonging to one wallet.
func (s *TransactionService) WalletTransactions(walletID string) ([]domain.Transaction, error) {
	txs, err := s.ListTransactions()
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.WalletID == walletID {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// AddManual appends a user-entered transaction to the ledger.
func (s *TransactionService) AddManual(
	walletID string, txType domain.TxType, asset string,
	amount, valueEUR decimal.Decimal, timestamp int64,
) (*domain.Transaction, error) {
	if _, err := s.wallet(walletID); err != nil {
		return nil, err
	}

	tx, err := domain.NewManualTransaction(
		walletID, txType, asset, amount, valueEUR, timestamp,
	)
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	if err := s.store.Read(domain.StoreKeyTransactions, &txs); err != nil {
		return nil, err
	}
	txs = append(txs, *tx)
	if err := s.save(txs); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateManual replaces the editable fields of a manual transaction.
// Provider-synced transactions are append-only and cannot be updated.
func (s *TransactionService) UpdateManual(
	id string, txType domain.TxType, asset string,
	amount, valueEUR decimal.Decimal, timestamp int64,
) error {
	var txs []domain.Transaction
	if err := s.store.Read(domain.StoreKeyTransactions, &txs); err != nil {
		return err
	}

	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if !txs[i].IsManual() {
			return domain.ErrNotManualTransaction
		}

		updated, err := domain.NewManualTransaction(
			txs[i].WalletID, txType, asset, amount, valueEUR, timestamp,
		)
		if err != nil {
			return err
		}
		updated.ID = txs[i].ID
		updated.Hash = txs[i].Hash
		txs[i] = *updated
		return s.save(txs)
	}
	return domain.ErrTransactionNotFound
}

// DeleteManual removes a manual transaction from the ledger.
func (s *TransactionService) DeleteManual(id string) error {
	var txs []domain.Transaction
	if err := s.store.Read(domain.StoreKeyTransactions, &txs); err != nil {
		return err
	}

	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if !txs[i].IsManual() {
			return domain.ErrNotManualTransaction
		}
		txs = append(txs[:i], txs[i+1:]...)
		return s.save(txs)
	}
	return domain.ErrTransactionNotFound
}

// SyncWallet fetches a wallet's history from its provider and appends the
// transactions not yet in the ledger, deduplicating by hash. Existing entries
// are never modified. It returns the number of transactions added.
func (s *TransactionService) SyncWallet(ctx context.Context, walletID string) (int, error) {
	wallet, err := s.wallet(walletID)
	if err != nil {
		return 0, err
	}

	fetched, err := s.syncSource.FetchTransactions(ctx, *wallet)
	if err != nil {
		return 0, err
	}
	for i := range fetched {
		fetched[i].WalletID = wallet.ID
	}

	added, err := s.ImportTransactions(fetched)
	if err != nil {
		return 0, err
	}

	if err := s.accountSvc.updateWallet(wallet.ID, func(w *domain.Wallet) {
		w.LastSync = time.Now().UnixMilli()
	}); err != nil {
		return added, err
	}

	log.WithFields(log.Fields{
		"wallet": wallet.ID,
		"added":  added,
	}).Debug("wallet synced")
	return added, nil
}

// ImportTransactions appends the given transactions to the ledger, skipping
// any whose hash is already present. It returns the number actually added.
func (s *TransactionService) ImportTransactions(incoming []domain.Transaction) (int, error) {
	var txs []domain.Transaction
	if err := s.store.Read(domain.StoreKeyTransactions, &txs); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		seen[tx.Hash] = struct{}{}
	}

	added := 0
	for _, tx := range incoming {
		if err := tx.Validate(); err != nil {
			return 0, err
		}
		if _, ok := seen[tx.Hash]; ok {
			continue
		}
		seen[tx.Hash] = struct{}{}
		txs = append(txs, tx)
		added++
	}

	if added <= 0 {
		return 0, nil
	}
	return added, s.save(txs)
}

// Holdings returns the per-asset amount left after replaying the whole ledger
// with the configured cost-basis method. Hidden assets are excluded.
func (s *TransactionService) Holdings() (map[string]decimal.Decimal, error) {
	txs, err := s.ListTransactions()
	if err != nil {
		return nil, err
	}
	settings, err := s.accountSvc.Settings()
	if err != nil {
		return nil, err
	}
	method, err := domain.ParseMethod(settings.CostBasisMethod)
	if err != nil {
		return nil, err
	}
	hidden, err := s.accountSvc.HiddenAssets()
	if err != nil {
		return nil, err
	}

	holdings := domain.ComputeTaxReport(txs, method).Holdings()
	for _, asset := range hidden {
		delete(holdings, asset)
	}
	return holdings, nil
}

func (s *TransactionService) wallet(id string) (*domain.Wallet, error) {
	wallets, err := s.accountSvc.ListWallets()
	if err != nil {
		return nil, err
	}
	for _, w := range wallets {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, domain.ErrWalletNotFound
}

func (s *TransactionService) save(txs []domain.Transaction) error {
	done, err := s.store.Write(domain.StoreKeyTransactions, txs)
	if err != nil {
		return err
	}
	return <-done
}
