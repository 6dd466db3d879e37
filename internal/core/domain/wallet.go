package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wallet is a tracked public address on some chain. The secure storage layer
// holds the canonical wallet collection; anything else gets a read-only
// projection. Tracking is read-only: no keys, no signing.
type Wallet struct {
	ID         string `json:"id"`
	Address    string `json:"address"`
	Chain      string `json:"chain"`
	Label      string `json:"label"`
	AddedAt    int64  `json:"addedAt"`
	Provider   string `json:"provider,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
	APIKeyHash string `json:"apiKeyHash,omitempty"`
	LastSync   int64  `json:"lastSync,omitempty"`
}

// NewWallet returns a new wallet with a freshly generated unique id.
func NewWallet(address, chain, label string) (*Wallet, error) {
	address = strings.TrimSpace(address)
	chain = strings.ToLower(strings.TrimSpace(chain))
	if len(address) <= 0 || len(chain) <= 0 {
		return nil, ErrInvalidWallet
	}

	return &Wallet{
		ID:      uuid.NewString(),
		Address: address,
		Chain:   chain,
		Label:   strings.TrimSpace(label),
		AddedAt: time.Now().UnixMilli(),
	}, nil
}

// Validate checks the wallet holds the minimum required fields.
func (w Wallet) Validate() error {
	if len(w.ID) <= 0 || len(w.Address) <= 0 || len(w.Chain) <= 0 {
		return ErrInvalidWallet
	}
	return nil
}

// SetProviderKey attaches a provider API key to the wallet, storing both the
// key itself (the collection is encrypted at rest) and its hash for display
// and comparison without exposing the key.
func (w *Wallet) SetProviderKey(provider, apiKey string) {
	w.Provider = provider
	w.APIKey = apiKey
	w.APIKeyHash = HashAPIKey(apiKey)
}

// HashAPIKey returns the hex-encoded SHA-256 of an API key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
