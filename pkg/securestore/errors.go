package securestore

import "errors"

var (
	// ErrVaultLocked specifies that an operation on an encrypted key was
	// attempted without an unlocked vault.
	ErrVaultLocked = errors.New("vault must be unlocked to perform this operation")
	// ErrUnknownKey specifies that the key does not belong to any registered
	// category, encrypted or plain.
	ErrUnknownKey = errors.New("unknown storage key")
	// ErrStoreClosed specifies that the store has been closed and accepts no
	// further writes.
	ErrStoreClosed = errors.New("store is closed")
	// ErrKeyNotFound is returned by the substrate when a key has no value.
	ErrKeyNotFound = errors.New("key not found")
)
