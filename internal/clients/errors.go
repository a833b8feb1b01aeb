package clients

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable matches every failure of the backing database other
// than a duplicate key.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError wraps a database failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrStorageUnavailable)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorageUnavailable so callers can match without errors.As.
func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// ErrorKind classifies storage failures for transport mapping.
func (e *StorageError) ErrorKind() string { return "storage" }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
