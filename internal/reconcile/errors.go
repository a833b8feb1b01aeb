package reconcile

import (
	"errors"
	"fmt"
)

// ErrMalformedFile matches every import failure caused by the file itself.
var ErrMalformedFile = errors.New("malformed import file")

// MalformedFileError explains why an import file was refused as a whole.
type MalformedFileError struct {
	Reason string
	Err    error
}

func (e *MalformedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedFile, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedFile, e.Reason)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

func (e *MalformedFileError) Is(target error) bool { return target == ErrMalformedFile }

// ErrorKind classifies the failure for transport mapping.
func (e *MalformedFileError) ErrorKind() string { return "malformed_file" }

func malformed(reason string, err error) error {
	return &MalformedFileError{Reason: reason, Err: err}
}
