package store

import (
	"errors"
	"fmt"
)

// StorageError reports a local persistence failure.
type StorageError struct {
	// Op names the failed store operation (e.g. "replace events").
	Op string
	// Err is the underlying database error.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
