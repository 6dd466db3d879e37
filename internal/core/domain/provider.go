package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProviderConfig holds the credentials for one explorer/market-data provider.
// The collection is encrypted at rest: the API key is stored verbatim, its
// hash is what gets shown to the user.
type ProviderConfig struct {
	ID         string `json:"id"`
	Provider   string `json:"provider"`
	APIKey     string `json:"apiKey"`
	APIKeyHash string `json:"apiKeyHash"`
	Endpoint   string `json:"endpoint,omitempty"`
	AddedAt    int64  `json:"addedAt"`
}

// NewProviderConfig returns a provider config with a fresh id and the key
// hash precomputed.
func NewProviderConfig(provider, apiKey, endpoint string) *ProviderConfig {
	return &ProviderConfig{
		ID:         uuid.NewString(),
		Provider:   provider,
		APIKey:     apiKey,
		APIKeyHash: HashAPIKey(apiKey),
		Endpoint:   endpoint,
		AddedAt:    time.Now().UnixMilli(),
	}
}
