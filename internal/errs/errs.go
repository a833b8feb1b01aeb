// Package errs maps errors raised by the core packages onto the coarse kinds
// the transports use for replies and status codes.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is a coarse error classification.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindStorage       Kind = "storage"
	KindMalformedFile Kind = "malformed_file"
	KindCanceled      Kind = "canceled"
	KindInternal      Kind = "internal"
)

// Classifier allows errors to declare their classification.
// Known kinds: "validation", "storage", "malformed_file".
type Classifier interface {
	ErrorKind() string
}

// KindOf walks the error chain and returns the first declared kind.
// Context cancellation is reported separately so callers do not page on it.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var classifier Classifier
	if errors.As(err, &classifier) {
		switch k := Kind(classifier.ErrorKind()); k {
		case KindValidation, KindStorage, KindMalformedFile:
			return k
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindInternal
}

// Wrap prefixes err with an operation label while keeping the chain intact.
// A nil err yields nil.
func Wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return err
	}
	return fmt.Errorf("%s: %w", operation, err)
}
