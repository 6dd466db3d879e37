package application

import "errors"

var (
	// ErrVaultAlreadyInitialized ...
	ErrVaultAlreadyInitialized = errors.New("vault is already initialized")
	// ErrVaultNotInitialized is thrown when unlocking before any vault was created
	ErrVaultNotInitialized = errors.New("vault is not initialized, create one first")
	// ErrWalletAlreadyExists is thrown when adding a wallet whose address and chain are already tracked
	ErrWalletAlreadyExists = errors.New("wallet already tracked for this address and chain")
	// ErrProviderNotFound ...
	ErrProviderNotFound = errors.New("provider config not found")
)
