package backup

import "errors"

var (
	// ErrInvalidBackupFile is returned when the file does not match the
	// expected backup structure.
	ErrInvalidBackupFile = errors.New("not a valid backup file")
)
