// Package securestore presents a synchronous-read, asynchronous-write
// key-value API over encrypted persistent storage. Values of encrypted
// categories are decrypted once at initialization into an in-memory plaintext
// cache; reads are served from the cache and never block, writes update the
// cache synchronously and re-encrypt in the background through a single
// writer queue, so ciphertexts land on disk in write order.
package securestore

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cryptofolio/cryptofolio-daemon/pkg/schema"
	"github.com/cryptofolio/cryptofolio-daemon/pkg/vault"
)

// KVStore is the synchronous byte-level substrate the secure store persists
// to. Implementations must return ErrKeyNotFound for missing keys.
type KVStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// RecoveryPolicy decides what happens when a persisted value cannot be
// decrypted or fails schema validation during initialization.
type RecoveryPolicy int

const (
	// ResetToDefault swallows the failure for that key and caches the kind's
	// default: a corrupted category must not block the rest of the app.
	ResetToDefault RecoveryPolicy = iota
	// FailClosed aborts initialization on the first failure. For callers that
	// prefer strict correctness over availability.
	FailClosed
)

// Options configures a SecureStore.
type Options struct {
	// Policy is the corruption recovery policy, ResetToDefault by default.
	Policy RecoveryPolicy
	// EncryptedKinds maps the logical keys whose values are encrypted at rest
	// to their schema kinds.
	EncryptedKinds map[string]schema.Kind
	// PlainKinds maps the logical keys persisted as plain versioned JSON,
	// readable without an unlocked vault.
	PlainKinds map[string]schema.Kind
}

type writeReq struct {
	key  string
	kind schema.Kind
	data json.RawMessage
	vlt  *vault.Unlocked
	done chan error
}

// SecureStore is the encrypted key-value layer. Safe for concurrent use; the
// single in-memory cache and vault reference have a simple lifecycle: created
// on Initialize, destroyed on Clear.
type SecureStore struct {
	db   KVStore
	opts Options

	mtx    sync.RWMutex
	vlt    *vault.Unlocked
	cache  map[string]json.RawMessage
	closed bool

	writeCh chan writeReq
	writeWg sync.WaitGroup
}

// NewSecureStore returns a store over the given substrate and starts its
// writer queue.
func NewSecureStore(db KVStore, opts Options) *SecureStore {
	s := &SecureStore{
		db:      db,
		opts:    opts,
		cache:   map[string]json.RawMessage{},
		writeCh: make(chan writeReq, 32),
	}

	s.writeWg.Add(1)
	go s.writeLoop()

	return s
}

// Initialize decrypts every encrypted category into the plaintext cache using
// the unlocked vault. Legacy plaintext values are migrated: parsed, validated
// and scheduled for re-encryption under the current key. With the
// ResetToDefault policy a category that fails decryption or validation is
// logged and left at its default without aborting the other categories.
func (s *SecureStore) Initialize(vlt *vault.Unlocked) error {
	if vlt.IsLocked() {
		return ErrVaultLocked
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	loaded := make(map[string]json.RawMessage, len(s.opts.EncryptedKinds))
	rewrite := map[string]json.RawMessage{}

	var loadMtx sync.Mutex
	eg := &errgroup.Group{}
	for key, kind := range s.opts.EncryptedKinds {
		key, kind := key, kind
		eg.Go(func() error {
			data, needsRewrite, err := s.loadEncrypted(vlt, key, kind)
			if err != nil {
				return err
			}

			loadMtx.Lock()
			defer loadMtx.Unlock()
			loaded[key] = data
			if needsRewrite {
				rewrite[key] = data
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	s.vlt = vlt
	for key, data := range loaded {
		s.cache[key] = data
	}
	for key, data := range rewrite {
		s.enqueue(writeReq{
			key:  key,
			kind: s.opts.EncryptedKinds[key],
			data: data,
			vlt:  vlt,
			done: make(chan error, 1),
		})
	}
	return nil
}

func (s *SecureStore) loadEncrypted(
	vlt *vault.Unlocked, key string, kind schema.Kind,
) (json.RawMessage, bool, error) {
	blob, err := s.db.Get(key)
	if err != nil {
		if err == ErrKeyNotFound {
			return kind.DefaultJSON(), false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}

	var plaintext []byte
	needsRewrite := false

	var payload vault.EncryptedPayload
	if err := json.Unmarshal(blob, &payload); err == nil && payload.Validate() == nil {
		plaintext, err = vlt.DecryptBytes(payload)
		if err != nil {
			if s.opts.Policy == FailClosed {
				return nil, false, fmt.Errorf("decrypting %s: %w", key, err)
			}
			log.WithError(err).Warnf("securestore: resetting %s to default", key)
			return kind.DefaultJSON(), false, nil
		}
	} else {
		// Legacy plaintext value from before the vault existed. Migrate it by
		// re-encrypting under the current key.
		plaintext = blob
		needsRewrite = true
	}

	res := kind.Normalize(plaintext)
	if res.Reset {
		if s.opts.Policy == FailClosed {
			return nil, false, fmt.Errorf("validating %s: schema mismatch", key)
		}
		log.Warnf("securestore: %s failed validation, reset to default", key)
	}
	return res.Data, needsRewrite || res.ShouldRewrite || res.Reset, nil
}

// Read unmarshals the cached plaintext of an encrypted key, or the persisted
// value of a plain key, into dst. Encrypted keys require an unlocked vault;
// plain keys are always readable.
func (s *SecureStore) Read(key string, dst interface{}) error {
	if kind, ok := s.opts.PlainKinds[key]; ok {
		return s.readPlain(key, kind, dst)
	}
	if _, ok := s.opts.EncryptedKinds[key]; !ok {
		return ErrUnknownKey
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.vlt.IsLocked() {
		return ErrVaultLocked
	}

	data, ok := s.cache[key]
	if !ok {
		data = s.opts.EncryptedKinds[key].DefaultJSON()
	}
	return json.Unmarshal(data, dst)
}

func (s *SecureStore) readPlain(key string, kind schema.Kind, dst interface{}) error {
	blob, err := s.db.Get(key)
	if err != nil {
		if err == ErrKeyNotFound {
			return json.Unmarshal(kind.DefaultJSON(), dst)
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}

	res := kind.Normalize(blob)
	if res.Reset {
		log.Warnf("securestore: %s failed validation, reset to default", key)
	}
	return json.Unmarshal(res.Data, dst)
}

// Write updates the value of a key. For encrypted keys the plaintext cache is
// updated synchronously, so a Read issued right after observes the new value,
// while the encryption and the disk write happen on the writer queue. The
// returned channel receives the outcome of the disk write; callers that only
// need the cache semantics may ignore it.
//
// If the vault is locked the write is rejected before touching the cache.
func (s *SecureStore) Write(key string, value interface{}) (<-chan error, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", key, err)
	}

	if kind, ok := s.opts.PlainKinds[key]; ok {
		done := make(chan error, 1)
		wrapped, err := kind.WrapRaw(data)
		if err != nil {
			return nil, err
		}
		err = s.db.Put(key, wrapped)
		done <- err
		return done, err
	}

	kind, ok := s.opts.EncryptedKinds[key]
	if !ok {
		return nil, ErrUnknownKey
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if s.vlt.IsLocked() {
		return nil, ErrVaultLocked
	}

	s.cache[key] = data

	req := writeReq{key: key, kind: kind, data: data, vlt: s.vlt, done: make(chan error, 1)}
	s.enqueue(req)
	return req.done, nil
}

// enqueue must be called with the mutex held (or during Initialize).
func (s *SecureStore) enqueue(req writeReq) {
	s.writeCh <- req
}

func (s *SecureStore) writeLoop() {
	defer s.writeWg.Done()

	for req := range s.writeCh {
		err := s.persist(req)
		if err != nil {
			// The on-disk state is left stale: the cache stays ahead of disk
			// until a later write for this key succeeds.
			log.WithError(err).Errorf("securestore: writing %s", req.key)
		}
		req.done <- err
	}
}

func (s *SecureStore) persist(req writeReq) error {
	wrapped, err := req.kind.WrapRaw(req.data)
	if err != nil {
		return fmt.Errorf("wrapping %s: %w", req.key, err)
	}

	payload, err := req.vlt.EncryptBytes(wrapped)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", req.key, err)
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializing payload for %s: %w", req.key, err)
	}
	return s.db.Put(req.key, blob)
}

// GetRaw reads a raw unversioned value (flags, markers) straight from the
// substrate.
func (s *SecureStore) GetRaw(key string) ([]byte, error) {
	return s.db.Get(key)
}

// PutRaw writes a raw unversioned value straight to the substrate.
func (s *SecureStore) PutRaw(key string, value []byte) error {
	return s.db.Put(key, value)
}

// Snapshot returns a copy of the current plaintext state of every encrypted
// category plus the plain versioned categories, keyed by logical key. Used by
// the backup engine.
func (s *SecureStore) Snapshot() (map[string]json.RawMessage, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.vlt.IsLocked() {
		return nil, ErrVaultLocked
	}

	snapshot := map[string]json.RawMessage{}
	for key, kind := range s.opts.EncryptedKinds {
		data, ok := s.cache[key]
		if !ok {
			data = kind.DefaultJSON()
		}
		snapshot[key] = append(json.RawMessage{}, data...)
	}
	for key, kind := range s.opts.PlainKinds {
		blob, err := s.db.Get(key)
		if err != nil {
			if err == ErrKeyNotFound {
				snapshot[key] = kind.DefaultJSON()
				continue
			}
			return nil, err
		}
		res := kind.Normalize(blob)
		snapshot[key] = res.Data
	}
	return snapshot, nil
}

// Restore writes every known key of the snapshot back through Write,
// re-encrypting under the current vault key. Unknown keys are skipped with a
// warning rather than failing the whole restore.
func (s *SecureStore) Restore(snapshot map[string]json.RawMessage) error {
	pending := make([]<-chan error, 0, len(snapshot))
	for key, data := range snapshot {
		_, encrypted := s.opts.EncryptedKinds[key]
		_, plain := s.opts.PlainKinds[key]
		if !encrypted && !plain {
			log.Warnf("securestore: skipping unknown key %s in snapshot", key)
			continue
		}

		done, err := s.Write(key, json.RawMessage(data))
		if err != nil {
			return fmt.Errorf("restoring %s: %w", key, err)
		}
		pending = append(pending, done)
	}

	for _, done := range pending {
		if err := <-done; err != nil {
			return err
		}
	}
	return nil
}

// Rekey swaps the store's vault and re-encrypts every cached encrypted
// category under the new key, waiting for all the disk writes to land.
func (s *SecureStore) Rekey(vlt *vault.Unlocked) error {
	if vlt.IsLocked() {
		return ErrVaultLocked
	}

	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrStoreClosed
	}
	if s.vlt.IsLocked() {
		s.mtx.Unlock()
		return ErrVaultLocked
	}

	s.vlt = vlt
	pending := make([]chan error, 0, len(s.cache))
	for key, data := range s.cache {
		kind, ok := s.opts.EncryptedKinds[key]
		if !ok {
			continue
		}
		req := writeReq{key: key, kind: kind, data: data, vlt: vlt, done: make(chan error, 1)}
		s.enqueue(req)
		pending = append(pending, req.done)
	}
	s.mtx.Unlock()

	for _, done := range pending {
		if err := <-done; err != nil {
			return err
		}
	}
	return nil
}

// IsLocked returns whether the store currently holds an unlocked vault.
func (s *SecureStore) IsLocked() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.vlt.IsLocked()
}

// Clear discards the in-memory vault reference and plaintext cache. The
// on-disk ciphertexts are left in place: a subsequent Initialize with the
// right passphrase can still read them.
func (s *SecureStore) Clear() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.vlt = nil
	s.cache = map[string]json.RawMessage{}
}

// Close drains the writer queue and stops accepting writes. It does not close
// the substrate, whose lifecycle belongs to the caller.
func (s *SecureStore) Close() {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return
	}
	s.closed = true
	s.mtx.Unlock()

	close(s.writeCh)
	s.writeWg.Wait()
}
