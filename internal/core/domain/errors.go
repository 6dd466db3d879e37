package domain

import "errors"

var (
	// ErrInvalidWallet is thrown when a wallet is missing its address or chain
	ErrInvalidWallet = errors.New("wallet must have an address and a chain")
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInvalidTransaction is thrown when a transaction is missing required fields
	ErrInvalidTransaction = errors.New("transaction is missing required fields")
	// ErrTransactionNotFound ...
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNotManualTransaction is thrown when trying to edit or delete a provider-synced transaction
	ErrNotManualTransaction = errors.New("only manual transactions can be edited or deleted")
	// ErrUnknownMethod is thrown when parsing an unknown cost-basis method
	ErrUnknownMethod = errors.New("unknown cost-basis method")
	// ErrUnknownTxType is thrown when parsing an unknown transaction type
	ErrUnknownTxType = errors.New("unknown transaction type")
)
