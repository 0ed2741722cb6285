package testutil

import (
	"context"
	"testing"

	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedDrafts records each draft in s, failing the test on the first error.
// Records without a status are recorded as created.
func SeedDrafts(t *testing.T, s *store.SQLiteStore, recs ...model.DraftRecord) {
	t.Helper()

	for _, rec := range recs {
		if rec.Status == "" {
			rec.Status = model.DraftStatusCreated
		}
		if err := s.RecordDraft(context.Background(), rec); err != nil {
			t.Fatalf("seeding draft for %s: %v", rec.Recipient, err)
		}
	}
}
