// Package phone validates the canonical international phone number format:
// a leading "+" followed by 7 to 15 ASCII digits.
package phone

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

const (
	MinDigits = 7
	MaxDigits = 15
)

// Reasons reported by FormatError.
const (
	ReasonMissingPlus = "missing_plus"
	ReasonNonDigit    = "non_digit"
	ReasonTooShort    = "too_short"
	ReasonTooLong     = "too_long"
)

// FormatError reports why a candidate number was rejected.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid phone number %q: %s", e.Input, e.Reason)
}

// ErrorKind classifies format errors as validation failures.
func (e *FormatError) ErrorKind() string { return "validation" }

// Valid reports whether s matches ^\+\d{7,15}$ exactly. No trimming is done.
func Valid(s string) bool {
	return Check(s) == nil
}

// Check returns nil for a valid number or a *FormatError naming the first problem.
func Check(s string) error {
	if len(s) == 0 || s[0] != '+' {
		return &FormatError{Input: s, Reason: ReasonMissingPlus}
	}
	digits := s[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return &FormatError{Input: s, Reason: ReasonNonDigit}
		}
	}
	switch {
	case len(digits) < MinDigits:
		return &FormatError{Input: s, Reason: ReasonTooShort}
	case len(digits) > MaxDigits:
		return &FormatError{Input: s, Reason: ReasonTooLong}
	}
	return nil
}

// Clean trims surrounding whitespace and folds full-width characters to ASCII.
// It is meant for transport input before Check; it does not make a number valid.
func Clean(s string) string {
	return strings.TrimSpace(width.Fold.String(strings.TrimSpace(s)))
}
