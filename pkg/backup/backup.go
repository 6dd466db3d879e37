// Package backup produces and consumes portable encrypted snapshots of the
// whole storage corpus. A backup file is self-contained: it embeds its own
// derivation meta with a fresh salt, independent of the device vault, so it
// can be restored on a different device with nothing but its passphrase.
package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

// FileVersion tags the backup file structure.
const FileVersion = 1

// File is the backup file contents. The payload is the encrypted aggregate
// of every collection keyed by logical storage key.
type File struct {
	Version   int                    `json:"version"`
	CreatedAt int64                  `json:"createdAt"`
	Meta      vault.Meta             `json:"meta"`
	Payload   vault.EncryptedPayload `json:"payload"`
}

// Create encrypts the collections under a key derived from the passphrase
// and a freshly generated salt. The device vault plays no role here.
func Create(
	collections map[string]json.RawMessage, passphrase string, opts ...vault.Option,
) (*File, error) {
	vlt, sentinel, err := vault.Create(passphrase, opts...)
	if err != nil {
		return nil, err
	}
	defer vlt.Lock()
	// The backup payload is its own passphrase check; the sentinel is unused.
	_ = sentinel

	payload, err := vlt.Encrypt(collections)
	if err != nil {
		return nil, fmt.Errorf("encrypting backup payload: %w", err)
	}

	return &File{
		Version:   FileVersion,
		CreatedAt: time.Now().UnixMilli(),
		Meta:      vlt.Meta(),
		Payload:   payload,
	}, nil
}

// Parse validates raw file contents against the backup structure.
func Parse(raw []byte) (*File, error) {
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, ErrInvalidBackupFile
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks the file carries a supported version and a structurally
// sound meta and payload.
func (f File) Validate() error {
	if f.Version != FileVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBackupFile, f.Version)
	}
	if f.Meta.Version <= 0 || len(f.Meta.Salt) <= 0 ||
		len(f.Meta.KDF.Name) <= 0 || len(f.Meta.Cipher.Name) <= 0 {
		return fmt.Errorf("%w: missing meta", ErrInvalidBackupFile)
	}
	if err := f.Payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackupFile, err)
	}
	return nil
}

// Restore derives the key from the embedded meta and the given passphrase
// and decrypts the collections. A wrong passphrase surfaces as
// vault.ErrInvalidPassphrase.
func Restore(file *File, passphrase string) (map[string]json.RawMessage, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	vlt, err := vault.Derive(file.Meta, passphrase)
	if err != nil {
		return nil, err
	}
	defer vlt.Lock()

	var collections map[string]json.RawMessage
	if err := vlt.Decrypt(file.Payload, &collections); err != nil {
		return nil, vault.ErrInvalidPassphrase
	}
	return collections, nil
}
