package errs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"clientbook/internal/errs"
)

type kindError struct{ kind string }

func (e kindError) Error() string     { return "kind " + e.kind }
func (e kindError) ErrorKind() string { return e.kind }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: kindError{kind: "validation"}, want: errs.KindValidation},
		{name: "wrapped storage", err: fmt.Errorf("insert: %w", kindError{kind: "storage"}), want: errs.KindStorage},
		{name: "malformed", err: kindError{kind: "malformed_file"}, want: errs.KindMalformedFile},
		{name: "unknown kind", err: kindError{kind: "weird"}, want: errs.KindInternal},
		{name: "canceled", err: fmt.Errorf("batch: %w", context.Canceled), want: errs.KindCanceled},
		{name: "plain", err: errors.New("boom"), want: errs.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errs.KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapPreservesChain(t *testing.T) {
	base := errors.New("disk full")
	wrapped := errs.Wrap("export", base)
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected wrapped error to match base")
	}
	if wrapped.Error() != "export: disk full" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
	if errs.Wrap("export", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if errs.Wrap("  ", base) != base {
		t.Fatal("expected unchanged error for empty operation")
	}
}
