package vault

import "errors"

var (
	// ErrWeakPassphrase is returned when creating a vault with a passphrase
	// shorter than MinPassphraseLength.
	ErrWeakPassphrase = errors.New("passphrase must be at least 8 characters long")
	// ErrInvalidPassphrase is returned when unlocking with a passphrase that
	// does not decrypt the sentinel.
	ErrInvalidPassphrase = errors.New("passphrase is not valid")
	// ErrTamperedData is returned when an AEAD authentication tag does not
	// verify, ie. the ciphertext was modified or encrypted under another key.
	ErrTamperedData = errors.New("data is corrupted or was tampered with")
	// ErrLocked is returned when using a vault after Lock.
	ErrLocked = errors.New("vault must be unlocked to perform this operation")
	// ErrCryptoUnavailable is returned when the vault meta references a KDF or
	// cipher this build does not support.
	ErrCryptoUnavailable = errors.New("unsupported kdf or cipher")
	// ErrInvalidPayload is returned when an encrypted payload is structurally
	// malformed.
	ErrInvalidPayload = errors.New("encrypted payload is malformed")
)
