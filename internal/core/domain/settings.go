package domain

// Settings are the user preferences. They carry no secrets and are persisted
// in plain (but versioned) form, readable without an unlocked vault.
type Settings struct {
	CostBasisMethod string `json:"costBasisMethod"`
	AutoLockMinutes int    `json:"autoLockMinutes"`
	Currency        string `json:"currency"`
}

// DefaultSettings returns the settings used for a fresh install or when the
// persisted ones fail validation.
func DefaultSettings() Settings {
	return Settings{
		CostBasisMethod: FIFO.String(),
		AutoLockMinutes: 15,
		Currency:        "EUR",
	}
}

// Validate checks the settings are coherent.
func (s Settings) Validate() error {
	if _, err := ParseMethod(s.CostBasisMethod); err != nil {
		return err
	}
	return nil
}
