package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
)

// TaxService computes realized and unrealized gain reports over the ledger
// and maintains the snapshot history.
type TaxService struct {
	store       *securestore.SecureStore
	accountSvc  *AccountService
	txSvc       *TransactionService
	priceSource ports.PriceSource
	syncSource  ports.SyncSource
}

func NewTaxService(
	store *securestore.SecureStore,
	accountSvc *AccountService,
	txSvc *TransactionService,
	priceSource ports.PriceSource,
	syncSource ports.SyncSource,
) *TaxService {
	return &TaxService{
		store:       store,
		accountSvc:  accountSvc,
		txSvc:       txSvc,
		priceSource: priceSource,
		syncSource:  syncSource,
	}
}

// RealizedReport replays the whole ledger and returns the report restricted
// to the given year. Year 0 means all years; an empty method name means the
// method from the settings.
func (s *TaxService) RealizedReport(year int, methodName string) (*domain.TaxReport, error) {
	txs, err := s.txSvc.ListTransactions()
	if err != nil {
		return nil, err
	}

	if len(methodName) <= 0 {
		settings, err := s.accountSvc.Settings()
		if err != nil {
			return nil, err
		}
		methodName = settings.CostBasisMethod
	}
	method, err := domain.ParseMethod(methodName)
	if err != nil {
		return nil, err
	}

	report := domain.ComputeTaxReport(txs, method)
	if year > 0 {
		report = report.FilterByYear(year)
	}
	return report, nil
}

// UnrealizedReport values the remaining lots at current market prices.
func (s *TaxService) UnrealizedReport() ([]domain.UnrealizedPosition, error) {
	report, err := s.RealizedReport(0, "")
	if err != nil {
		return nil, err
	}

	assets := make([]string, 0, len(report.Lots))
	for asset := range report.Lots {
		assets = append(assets, asset)
	}
	prices := s.priceSource.Prices(assets)

	return domain.ComputeUnrealized(report, prices), nil
}

// Discrepancies compares computed holdings against the balances reported by
// the wallet's provider, surfacing drift from missing or duplicated
// transactions.
func (s *TaxService) Discrepancies(ctx context.Context, walletID string) ([]domain.HoldingsDiscrepancy, error) {
	wallets, err := s.accountSvc.ListWallets()
	if err != nil {
		return nil, err
	}
	var wallet *domain.Wallet
	for i := range wallets {
		if wallets[i].ID == walletID {
			wallet = &wallets[i]
			break
		}
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}

	synced, err := s.syncSource.FetchHoldings(ctx, *wallet)
	if err != nil {
		return nil, err
	}

	txs, err := s.txSvc.WalletTransactions(walletID)
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

	report := domain.ComputeTaxReport(txs, method)
	return domain.CompareHoldings(report, synced), nil
}

// SnapshotPortfolio values the current holdings and appends the snapshot to
// the history.
func (s *TaxService) SnapshotPortfolio() (*domain.PortfolioSnapshot, error) {
	holdings, err := s.txSvc.Holdings()
	if err != nil {
		return nil, err
	}

	assets := make([]string, 0, len(holdings))
	for asset := range holdings {
		assets = append(assets, asset)
	}
	prices := s.priceSource.Prices(assets)

	snapshot := domain.NewPortfolioSnapshot(holdings, prices)

	var snapshots []domain.PortfolioSnapshot
	if err := s.store.Read(domain.StoreKeySnapshots, &snapshots); err != nil {
		return nil, err
	}
	snapshots = append(snapshots, *snapshot)

	done, err := s.store.Write(domain.StoreKeySnapshots, snapshots)
	if err != nil {
		return nil, err
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SnapshotHistory returns the persisted snapshot history, oldest first.
func (s *TaxService) SnapshotHistory() ([]domain.PortfolioSnapshot, error) {
	var snapshots []domain.PortfolioSnapshot
	if err := s.store.Read(domain.StoreKeySnapshots, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// PortfolioValue returns the current total portfolio valuation.
func (s *TaxService) PortfolioValue() (decimal.Decimal, error) {
	holdings, err := s.txSvc.Holdings()
	if err != nil {
		return decimal.Zero, err
	}

	assets := make([]string, 0, len(holdings))
	for asset := range holdings {
		assets = append(assets, asset)
	}
	prices := s.priceSource.Prices(assets)

	total := decimal.Zero
	for asset, amount := range holdings {
		if price, ok := prices[asset]; ok {
			total = total.Add(amount.Mul(price))
		}
	}
	return total, nil
}
