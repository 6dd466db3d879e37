package domain

import (
	"encoding/json"
	"fmt"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/schema"
)

// Logical keys of the persisted state. Encrypted keys hold an AEAD payload,
// plain keys hold versioned JSON readable without an unlocked vault.
const (
	StoreKeyVaultMeta     = "vault:meta"
	StoreKeyVaultSentinel = "vault:sentinel"
	StoreKeyWallets       = "wallets"
	StoreKeyTransactions  = "transactions"
	StoreKeySnapshots     = "snapshots"
	StoreKeyProviders     = "providers"
	StoreKeySettings      = "settings"
	StoreKeyOnboarded     = "flags:onboarded"
	StoreKeyHiddenAssets  = "flags:hidden-assets"
)

// WalletsKind validates the persisted wallet collection.
var WalletsKind = schema.Kind{
	Name:    StoreKeyWallets,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var list []Wallet
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for i, w := range list {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("wallet %d: %w", i, err)
			}
		}
		return nil
	},
	Default: func() interface{} { return []Wallet{} },
}

// TransactionsKind validates the persisted transaction collection.
var TransactionsKind = schema.Kind{
	Name:    StoreKeyTransactions,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var list []Transaction
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for i, tx := range list {
			if err := tx.Validate(); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
		}
		return nil
	},
	Default: func() interface{} { return []Transaction{} },
}

// SnapshotsKind validates the persisted snapshot history.
var SnapshotsKind = schema.Kind{
	Name:    StoreKeySnapshots,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var list []PortfolioSnapshot
		return json.Unmarshal(data, &list)
	},
	Default: func() interface{} { return []PortfolioSnapshot{} },
}

// ProvidersKind validates the persisted provider configs.
var ProvidersKind = schema.Kind{
	Name:    StoreKeyProviders,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var list []ProviderConfig
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for i, p := range list {
			if len(p.ID) <= 0 || len(p.Provider) <= 0 {
				return fmt.Errorf("provider %d: missing id or provider name", i)
			}
		}
		return nil
	},
	Default: func() interface{} { return []ProviderConfig{} },
}

// SettingsKind validates the persisted settings object.
var SettingsKind = schema.Kind{
	Name:    StoreKeySettings,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var s Settings
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return s.Validate()
	},
	Default: func() interface{} { return DefaultSettings() },
}

// OnboardedKind validates the plain onboarding-complete flag.
var OnboardedKind = schema.Kind{
	Name:    StoreKeyOnboarded,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var v bool
		return json.Unmarshal(data, &v)
	},
	Default: func() interface{} { return false },
}

// HiddenAssetsKind validates the plain hidden/spam asset list.
var HiddenAssetsKind = schema.Kind{
	Name:    StoreKeyHiddenAssets,
	Version: 1,
	Validate: func(data json.RawMessage) error {
		var list []string
		return json.Unmarshal(data, &list)
	},
	Default: func() interface{} { return []string{} },
}

// EncryptedKinds maps every encrypted logical key to its schema kind. This is
// the set the secure storage layer decrypts into its cache at initialization.
func EncryptedKinds() map[string]schema.Kind {
	return map[string]schema.Kind{
		StoreKeyWallets:      WalletsKind,
		StoreKeyTransactions: TransactionsKind,
		StoreKeySnapshots:    SnapshotsKind,
		StoreKeyProviders:    ProvidersKind,
	}
}

// PlainKinds maps every non-encrypted versioned key to its schema kind.
func PlainKinds() map[string]schema.Kind {
	return map[string]schema.Kind{
		StoreKeySettings:     SettingsKind,
		StoreKeyOnboarded:    OnboardedKind,
		StoreKeyHiddenAssets: HiddenAssetsKind,
	}
}
