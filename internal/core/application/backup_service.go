package application

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/backup"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

// BackupService exports and imports portable encrypted backups of the whole
// corpus. Backups use their own passphrase and a fresh salt, decoupled from
// the device vault.
type BackupService struct {
	store *securestore.SecureStore
	opts  []vault.Option
}

func NewBackupService(store *securestore.SecureStore, opts ...vault.Option) *BackupService {
	return &BackupService{store: store, opts: opts}
}

// Create snapshots the current plaintext state and returns it encrypted under
// the given backup passphrase, serialized as a backup file.
func (s *BackupService) Create(passphrase string) ([]byte, error) {
	snapshot, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}

	file, err := backup.Create(snapshot, passphrase, s.opts...)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(file)
	if err != nil {
		return nil, err
	}

	log.WithField("collections", len(snapshot)).Debug("backup created")
	return raw, nil
}

// Restore decrypts a backup file with its passphrase and replaces the whole
// corpus with its contents, re-encrypted under the device vault.
func (s *BackupService) Restore(raw []byte, passphrase string) error {
	file, err := backup.Parse(raw)
	if err != nil {
		return err
	}

	collections, err := backup.Restore(file, passphrase)
	if err != nil {
		return err
	}

	if err := s.store.Restore(collections); err != nil {
		return err
	}

	log.WithField("collections", len(collections)).Info("backup restored")
	return nil
}
