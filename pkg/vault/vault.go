// Package vault turns a human passphrase into a symmetric key and exposes
// authenticated encryption primitives keyed by it. The key only ever lives in
// memory: what gets persisted is the derivation meta (salt and KDF parameters,
// neither of which is secret) and a sentinel value encrypted at setup time,
// used to validate a candidate passphrase without touching real data.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinPassphraseLength is the minimum accepted passphrase length.
	MinPassphraseLength = 8

	// MetaVersion tags the vault meta shape for future migrations.
	MetaVersion = 1
	// PayloadVersion tags the encrypted payload shape.
	PayloadVersion = 1

	// DefaultIterations is the default PBKDF2 iteration count. Deliberately
	// slow (hundreds of milliseconds) to resist brute-force.
	DefaultIterations = 310000

	kdfName    = "PBKDF2"
	kdfHash    = "SHA-256"
	cipherName = "AES-GCM"

	saltLen = 32
	keyLen  = 32
	ivLen   = 12
)

// KDFParams describes the key derivation function recorded in the meta.
type KDFParams struct {
	Name       string `json:"name"`
	Hash       string `json:"hash"`
	Iterations int    `json:"iterations"`
}

// CipherParams describes the AEAD cipher recorded in the meta.
type CipherParams struct {
	Name string `json:"name"`
}

// Meta is the plaintext derivation info persisted next to the encrypted
// corpus. It is created once at vault setup and is immutable thereafter.
type Meta struct {
	Version int          `json:"version"`
	Salt    string       `json:"salt"`
	KDF     KDFParams    `json:"kdf"`
	Cipher  CipherParams `json:"cipher"`
}

// EncryptedPayload is one encrypted blob. The IV is freshly random for every
// encryption call and the ciphertext carries the GCM authentication tag.
type EncryptedPayload struct {
	Version    int    `json:"version"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// Validate checks the payload is structurally sound before attempting any
// cryptographic operation on it.
func (p EncryptedPayload) Validate() error {
	if p.Version != PayloadVersion {
		return fmt.Errorf("%w: unknown version %d", ErrInvalidPayload, p.Version)
	}
	iv, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil || len(iv) != ivLen {
		return fmt.Errorf("%w: bad iv", ErrInvalidPayload)
	}
	if _, err := base64.StdEncoding.DecodeString(p.Ciphertext); err != nil {
		return fmt.Errorf("%w: bad ciphertext", ErrInvalidPayload)
	}
	return nil
}

type sentinelValue struct {
	OK        bool  `json:"ok"`
	Timestamp int64 `json:"timestamp"`
}

// Unlocked is the capability token holding the derived key in memory.
// It must be presented to every encrypt/decrypt operation and is destroyed
// by Lock.
type Unlocked struct {
	meta Meta
	key  []byte
	aead cipher.AEAD
}

// Option customizes vault creation.
type Option func(*options)

type options struct {
	iterations int
}

// WithIterations overrides the PBKDF2 iteration count. Meant for tests where
// the default cost would dominate the run time.
func WithIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// Create derives a fresh vault from the passphrase. It returns the unlocked
// vault and the encrypted sentinel; the caller persists Meta() and the
// sentinel and keeps the unlocked vault in memory only.
func Create(passphrase string, opts ...Option) (*Unlocked, EncryptedPayload, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, EncryptedPayload{}, ErrWeakPassphrase
	}

	o := options{iterations: DefaultIterations}
	for _, opt := range opts {
		opt(&o)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, EncryptedPayload{}, fmt.Errorf("generating salt: %w", err)
	}

	meta := Meta{
		Version: MetaVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		KDF: KDFParams{
			Name:       kdfName,
			Hash:       kdfHash,
			Iterations: o.iterations,
		},
		Cipher: CipherParams{Name: cipherName},
	}

	u, err := derive(meta, passphrase)
	if err != nil {
		return nil, EncryptedPayload{}, err
	}

	sentinel, err := u.Encrypt(sentinelValue{OK: true, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return nil, EncryptedPayload{}, err
	}
	return u, sentinel, nil
}

// Unlock re-derives the key from the persisted meta and validates the
// passphrase against the sentinel. It returns ErrInvalidPassphrase whether the
// passphrase is wrong or the sentinel is corrupted, leaking nothing beyond
// what is structurally necessary.
func Unlock(meta Meta, sentinel EncryptedPayload, passphrase string) (*Unlocked, error) {
	u, err := derive(meta, passphrase)
	if err != nil {
		return nil, err
	}

	var s sentinelValue
	if err := u.Decrypt(sentinel, &s); err != nil {
		u.Lock()
		return nil, ErrInvalidPassphrase
	}
	if !s.OK {
		u.Lock()
		return nil, ErrInvalidPassphrase
	}
	return u, nil
}

// Derive re-derives an unlocked vault from persisted meta without any
// passphrase validation: a wrong passphrase yields a key that fails every
// subsequent decryption. Callers that hold a sentinel should prefer Unlock.
func Derive(meta Meta, passphrase string) (*Unlocked, error) {
	return derive(meta, passphrase)
}

func derive(meta Meta, passphrase string) (*Unlocked, error) {
	if meta.KDF.Name != kdfName || meta.KDF.Hash != kdfHash {
		return nil, fmt.Errorf("%w: kdf %s/%s", ErrCryptoUnavailable, meta.KDF.Name, meta.KDF.Hash)
	}
	if meta.Cipher.Name != cipherName {
		return nil, fmt.Errorf("%w: cipher %s", ErrCryptoUnavailable, meta.Cipher.Name)
	}
	if meta.KDF.Iterations <= 0 {
		return nil, fmt.Errorf("%w: non-positive iteration count", ErrCryptoUnavailable)
	}

	salt, err := base64.StdEncoding.DecodeString(meta.Salt)
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, meta.KDF.Iterations, keyLen, sha256.New)

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	aead, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	return &Unlocked{meta: meta, key: key, aead: aead}, nil
}

// Meta returns the derivation meta the unlocked vault was built from.
func (u *Unlocked) Meta() Meta {
	return u.meta
}

// IsLocked returns whether the in-memory key has been discarded.
func (u *Unlocked) IsLocked() bool {
	return u == nil || u.key == nil
}

// Lock wipes the in-memory key. Irreversible until the next Unlock.
func (u *Unlocked) Lock() {
	if u == nil || u.key == nil {
		return
	}
	for i := range u.key {
		u.key[i] = 0
	}
	u.key = nil
	u.aead = nil
}

// Encrypt serializes the value to JSON and seals it under the vault key with
// a fresh random IV.
func (u *Unlocked) Encrypt(value interface{}) (EncryptedPayload, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("serializing value: %w", err)
	}
	return u.EncryptBytes(plaintext)
}

// EncryptBytes seals raw plaintext bytes under the vault key.
func (u *Unlocked) EncryptBytes(plaintext []byte) (EncryptedPayload, error) {
	if u.IsLocked() {
		return EncryptedPayload{}, ErrLocked
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedPayload{}, fmt.Errorf("generating iv: %w", err)
	}

	ciphertext := u.aead.Seal(nil, iv, plaintext, nil)
	return EncryptedPayload{
		Version:    PayloadVersion,
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens the payload and unmarshals the plaintext into dst. A tag
// mismatch returns ErrTamperedData, never partial data.
func (u *Unlocked) Decrypt(payload EncryptedPayload, dst interface{}) error {
	plaintext, err := u.DecryptBytes(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		return fmt.Errorf("deserializing value: %w", err)
	}
	return nil
}

// DecryptBytes opens the payload and returns the raw plaintext.
func (u *Unlocked) DecryptBytes(payload EncryptedPayload) ([]byte, error) {
	if u.IsLocked() {
		return nil, ErrLocked
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	iv, _ := base64.StdEncoding.DecodeString(payload.IV)
	ciphertext, _ := base64.StdEncoding.DecodeString(payload.Ciphertext)

	plaintext, err := u.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrTamperedData
	}
	return plaintext, nil
}

// ChangePassphrase derives a brand new vault (fresh salt) from the new
// passphrase and returns it along with its sentinel. The caller is in charge
// of re-encrypting the corpus under the new key and persisting the new
// meta and sentinel. The receiver is left untouched.
func (u *Unlocked) ChangePassphrase(newPassphrase string, opts ...Option) (*Unlocked, EncryptedPayload, error) {
	if u.IsLocked() {
		return nil, EncryptedPayload{}, ErrLocked
	}
	return Create(newPassphrase, opts...)
}

// KeyEqual reports whether two unlocked vaults hold the same key. Used by
// tests; constant time.
func KeyEqual(a, b *Unlocked) bool {
	if a.IsLocked() || b.IsLocked() {
		return false
	}
	return subtle.ConstantTimeCompare(a.key, b.key) == 1
}
