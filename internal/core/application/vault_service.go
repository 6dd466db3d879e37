package application

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/domain"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/securestore"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

// VaultService manages the device vault lifecycle: setup, unlock, lock and
// passphrase change. It persists the vault meta and sentinel in plaintext on
// the substrate (the salt is not secret) and hands the unlocked vault to the
// secure store.
type VaultService struct {
	store *securestore.SecureStore
	opts  []vault.Option

	mtx sync.Mutex
	vlt *vault.Unlocked
}

// NewVaultService returns a vault service over the given secure store. The
// vault options (typically a KDF iteration override) are applied to every
// vault created by the service.
func NewVaultService(store *securestore.SecureStore, opts ...vault.Option) *VaultService {
	return &VaultService{store: store, opts: opts}
}

// IsInitialized returns whether a vault meta has been persisted.
func (s *VaultService) IsInitialized() bool {
	_, err := s.store.GetRaw(domain.StoreKeyVaultMeta)
	return err == nil
}

// IsLocked returns whether no vault is currently unlocked.
func (s *VaultService) IsLocked() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.vlt.IsLocked()
}

// Setup creates the vault from the passphrase, persists its meta and
// sentinel and initializes the secure store with the fresh key.
func (s *VaultService) Setup(passphrase string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.IsInitialized() {
		return ErrVaultAlreadyInitialized
	}

	vlt, sentinel, err := vault.Create(passphrase, s.opts...)
	if err != nil {
		return err
	}

	if err := s.persistMeta(vlt.Meta(), sentinel); err != nil {
		return err
	}

	if err := s.store.Initialize(vlt); err != nil {
		return err
	}
	s.vlt = vlt

	log.Debug("vault created and unlocked")
	return nil
}

// Unlock validates the passphrase against the persisted sentinel and, on
// success, decrypts the whole corpus into the secure store's cache.
func (s *VaultService) Unlock(passphrase string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.vlt.IsLocked() {
		return nil
	}

	meta, sentinel, err := s.loadMeta()
	if err != nil {
		return err
	}

	vlt, err := vault.Unlock(*meta, *sentinel, passphrase)
	if err != nil {
		return err
	}

	if err := s.store.Initialize(vlt); err != nil {
		return err
	}
	s.vlt = vlt

	log.Debug("vault unlocked")
	return nil
}

// Lock wipes the in-memory key and the decrypted cache. The on-disk
// ciphertexts stay in place.
func (s *VaultService) Lock() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.vlt.IsLocked() {
		return
	}
	s.store.Clear()
	s.vlt.Lock()
	s.vlt = nil

	log.Debug("vault locked")
}

// ChangePassphrase verifies the current passphrase, derives a brand new
// vault (fresh salt) from the new one and re-encrypts the whole corpus
// under it.
func (s *VaultService) ChangePassphrase(current, next string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.vlt.IsLocked() {
		return securestore.ErrVaultLocked
	}

	meta, sentinel, err := s.loadMeta()
	if err != nil {
		return err
	}
	if _, err := vault.Unlock(*meta, *sentinel, current); err != nil {
		return err
	}

	newVlt, newSentinel, err := s.vlt.ChangePassphrase(next, s.opts...)
	if err != nil {
		return err
	}

	if err := s.persistMeta(newVlt.Meta(), newSentinel); err != nil {
		return err
	}
	if err := s.store.Rekey(newVlt); err != nil {
		return err
	}

	s.vlt.Lock()
	s.vlt = newVlt

	log.Debug("vault passphrase changed")
	return nil
}

func (s *VaultService) persistMeta(meta vault.Meta, sentinel vault.EncryptedPayload) error {
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("serializing vault meta: %w", err)
	}
	rawSentinel, err := json.Marshal(sentinel)
	if err != nil {
		return fmt.Errorf("serializing vault sentinel: %w", err)
	}

	if err := s.store.PutRaw(domain.StoreKeyVaultMeta, rawMeta); err != nil {
		return fmt.Errorf("persisting vault meta: %w", err)
	}
	if err := s.store.PutRaw(domain.StoreKeyVaultSentinel, rawSentinel); err != nil {
		return fmt.Errorf("persisting vault sentinel: %w", err)
	}
	return nil
}

func (s *VaultService) loadMeta() (*vault.Meta, *vault.EncryptedPayload, error) {
	rawMeta, err := s.store.GetRaw(domain.StoreKeyVaultMeta)
	if err != nil {
		return nil, nil, ErrVaultNotInitialized
	}
	rawSentinel, err := s.store.GetRaw(domain.StoreKeyVaultSentinel)
	if err != nil {
		return nil, nil, ErrVaultNotInitialized
	}

	var meta vault.Meta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, nil, fmt.Errorf("parsing vault meta: %w", err)
	}
	var sentinel vault.EncryptedPayload
	if err := json.Unmarshal(rawSentinel, &sentinel); err != nil {
		return nil, nil, fmt.Errorf("parsing vault sentinel: %w", err)
	}
	return &meta, &sentinel, nil
}
