package testsupport

import (
	"context"
	"testing"
	"time"

	"clientbook/internal/clients"
	"clientbook/internal/config"
)

// MustOpenStore opens a clients.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clients.Store {
	t.Helper()

	store, err := clients.Open(cfg)
	if err != nil {
		t.Fatalf("clients.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord inserts a record for tests and fails when it already exists.
func SeedRecord(t testing.TB, store *clients.Store, submitter, number string, addedAt time.Time) {
	t.Helper()

	inserted, err := store.InsertIfAbsent(context.Background(), clients.Record{
		Submitter:   submitter,
		PhoneNumber: number,
		AddedAt:     addedAt,
	})
	if err != nil {
		t.Fatalf("store.InsertIfAbsent: %v", err)
	}
	if !inserted {
		t.Fatalf("seed %s: already present", number)
	}
}

// FixedClock returns a clock that always reports ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
