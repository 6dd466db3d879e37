package application

import (
	"sort"
	"strings"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
)

// AccountService manages the tracked wallets, the provider credentials and
// the user preferences persisted by the secure store.
type AccountService struct {
	store *securestore.SecureStore
}

func NewAccountService(store *securestore.SecureStore) *AccountService {
	return &AccountService{store: store}
}

// ListWallets returns the tracked wallets sorted by the time they were added.
func (s *AccountService) ListWallets() ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	if err := s.store.Read(domain.StoreKeyWallets, &wallets); err != nil {
		return nil, err
	}
	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].AddedAt < wallets[j].AddedAt
	})
	return wallets, nil
}

// AddWallet starts tracking a new address. Adding the same address twice on
// the same chain fails with ErrWalletAlreadyExists.
func (s *AccountService) AddWallet(address, chain, label string) (*domain.Wallet, error) {
	wallet, err := domain.NewWallet(address, chain, label)
	if err != nil {
		return nil, err
	}

	var wallets []domain.Wallet
	if err := s.store.Read(domain.StoreKeyWallets, &wallets); err != nil {
		return nil, err
	}
	for _, w := range wallets {
		if strings.EqualFold(w.Address, wallet.Address) && w.Chain == wallet.Chain {
			return nil, ErrWalletAlreadyExists
		}
	}

	wallets = append(wallets, *wallet)
	if err := s.save(domain.StoreKeyWallets, wallets); err != nil {
		return nil, err
	}
	return wallet, nil
}

// RemoveWallet stops tracking the wallet with the given id. The wallet's
// transactions are kept: they still matter for cost basis.
func (s *AccountService) RemoveWallet(id string) error {
	var wallets []domain.Wallet
	if err := s.store.Read(domain.StoreKeyWallets, &wallets); err != nil {
		return err
	}

	index := -1
	for i, w := range wallets {
		if w.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return domain.ErrWalletNotFound
	}

	wallets = append(wallets[:index], wallets[index+1:]...)
	return s.save(domain.StoreKeyWallets, wallets)
}

// UpdateWalletLabel renames a tracked wallet.
func (s *AccountService) UpdateWalletLabel(id, label string) error {
	return s.updateWallet(id, func(w *domain.Wallet) {
		w.Label = strings.TrimSpace(label)
	})
}

// SetWalletProvider attaches provider credentials to a tracked wallet.
func (s *AccountService) SetWalletProvider(id, provider, apiKey string) error {
	return s.updateWallet(id, func(w *domain.Wallet) {
		w.SetProviderKey(provider, apiKey)
	})
}

func (s *AccountService) updateWallet(id string, update func(*domain.Wallet)) error {
	var wallets []domain.Wallet
	if err := s.store.Read(domain.StoreKeyWallets, &wallets); err != nil {
		return err
	}
	for i := range wallets {
		if wallets[i].ID == id {
			update(&wallets[i])
			return s.save(domain.StoreKeyWallets, wallets)
		}
	}
	return domain.ErrWalletNotFound
}

// ListProviders returns the configured provider credentials.
func (s *AccountService) ListProviders() ([]domain.ProviderConfig, error) {
	var providers []domain.ProviderConfig
	if err := s.store.Read(domain.StoreKeyProviders, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// AddProvider stores a new provider credential and returns it.
func (s *AccountService) AddProvider(provider, apiKey, endpoint string) (*domain.ProviderConfig, error) {
	var providers []domain.ProviderConfig
	if err := s.store.Read(domain.StoreKeyProviders, &providers); err != nil {
		return nil, err
	}

	config := domain.NewProviderConfig(provider, apiKey, endpoint)
	providers = append(providers, *config)
	if err := s.save(domain.StoreKeyProviders, providers); err != nil {
		return nil, err
	}
	return config, nil
}

// RemoveProvider deletes the provider credential with the given id.
func (s *AccountService) RemoveProvider(id string) error {
	var providers []domain.ProviderConfig
	if err := s.store.Read(domain.StoreKeyProviders, &providers); err != nil {
		return err
	}

	index := -1
	for i, p := range providers {
		if p.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrProviderNotFound
	}

	providers = append(providers[:index], providers[index+1:]...)
	return s.save(domain.StoreKeyProviders, providers)
}

// HiddenAssets returns the assets the user flagged as spam or irrelevant.
func (s *AccountService) HiddenAssets() ([]string, error) {
	var assets []string
	if err := s.store.Read(domain.StoreKeyHiddenAssets, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// HideAsset adds an asset to the hidden list. Hiding an already hidden asset
// is a no-op.
func (s *AccountService) HideAsset(asset string) error {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if len(asset) <= 0 {
		return nil
	}

	assets, err := s.HiddenAssets()
	if err != nil {
		return err
	}
	for _, a := range assets {
		if a == asset {
			return nil
		}
	}
	return s.save(domain.StoreKeyHiddenAssets, append(assets, asset))
}

// UnhideAsset removes an asset from the hidden list.
func (s *AccountService) UnhideAsset(asset string) error {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	assets, err := s.HiddenAssets()
	if err != nil {
		return err
	}

	filtered := make([]string, 0, len(assets))
	for _, a := range assets {
		if a != asset {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == len(assets) {
		return nil
	}
	return s.save(domain.StoreKeyHiddenAssets, filtered)
}

// IsOnboarded reports whether the first-run onboarding has been completed.
func (s *AccountService) IsOnboarded() (bool, error) {
	var onboarded bool
	if err := s.store.Read(domain.StoreKeyOnboarded, &onboarded); err != nil {
		return false, err
	}
	return onboarded, nil
}

// SetOnboarded marks the first-run onboarding as completed.
func (s *AccountService) SetOnboarded() error {
	return s.save(domain.StoreKeyOnboarded, true)
}

// Settings returns the persisted user preferences.
func (s *AccountService) Settings() (domain.Settings, error) {
	var settings domain.Settings
	if err := s.store.Read(domain.StoreKeySettings, &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// UpdateSettings validates and persists the user preferences.
func (s *AccountService) UpdateSettings(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.save(domain.StoreKeySettings, settings)
}

func (s *AccountService) save(key string, value interface{}) error {
	done, err := s.store.Write(key, value)
	if err != nil {
		return err
	}
	return <-done
}
