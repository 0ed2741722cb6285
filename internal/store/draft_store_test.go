package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
	"github.com/nhle/maildraft/tests/testutil"
)

func TestRecordAndListDrafts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	records := []model.DraftRecord{
		{
			Recipient:   "alice@example.com",
			Subject:     "Documents Attached",
			Folder:      "/data/alice",
			Attachments: []string{"/data/alice/a.pdf", "/data/alice/b.xlsx"},
			Backend:     model.BackendEML,
			DraftRef:    "draft-1",
			Status:      model.DraftStatusCreated,
			CreatedAt:   base,
		},
		{
			Recipient: "bob@example.com",
			Folder:    "/data/missing",
			Status:    model.DraftStatusSkipped,
			CreatedAt: base.Add(time.Minute),
		},
		{
			Recipient: "carol@example.com",
			Folder:    "/data/carol",
			Status:    model.DraftStatusFailed,
			Error:     "save failed",
			CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, rec := range records {
		if err := s.RecordDraft(ctx, rec); err != nil {
			t.Fatalf("RecordDraft(%s): %v", rec.Recipient, err)
		}
	}

	got, err := s.GetDrafts(ctx, store.DraftFilter{})
	if err != nil {
		t.Fatalf("GetDrafts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d drafts, want 3", len(got))
	}
	if got[0].Recipient != "carol@example.com" || got[2].Recipient != "alice@example.com" {
		t.Errorf("drafts not newest first: %s .. %s", got[0].Recipient, got[2].Recipient)
	}
	alice := got[2]
	if alice.ID == "" {
		t.Error("expected generated ID")
	}
	if len(alice.Attachments) != 2 || alice.Attachments[1] != "/data/alice/b.xlsx" {
		t.Errorf("attachments = %v", alice.Attachments)
	}
	if alice.DraftRef != "draft-1" || alice.Backend != model.BackendEML {
		t.Errorf("ref/backend = %q/%q", alice.DraftRef, alice.Backend)
	}
	if got[1].Attachments == nil || len(got[1].Attachments) != 0 {
		t.Errorf("skipped attachments = %#v, want empty", got[1].Attachments)
	}
}

func TestGetDraftsFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.SeedDrafts(t, s,
		model.DraftRecord{Recipient: "alice@example.com", Folder: "/data", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		model.DraftRecord{Recipient: "alice@example.com", Folder: "/data", CreatedAt: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)},
		model.DraftRecord{
			Recipient: "alice@example.com",
			Folder:    "/data",
			Status:    model.DraftStatusFailed,
			CreatedAt: time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC),
		},
	)

	created := model.DraftStatusCreated
	got, err := s.GetDrafts(ctx, store.DraftFilter{Status: &created})
	if err != nil {
		t.Fatalf("GetDrafts: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("created drafts = %d, want 2", len(got))
	}

	got, err = s.GetDrafts(ctx, store.DraftFilter{Limit: 1})
	if err != nil {
		t.Fatalf("GetDrafts: %v", err)
	}
	if len(got) != 1 || got[0].Status != model.DraftStatusFailed {
		t.Errorf("limited drafts = %+v", got)
	}

	counts, err := s.GetDraftCounts(ctx)
	if err != nil {
		t.Fatalf("GetDraftCounts: %v", err)
	}
	if counts[model.DraftStatusCreated] != 2 || counts[model.DraftStatusFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecordDraftValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		rec  model.DraftRecord
	}{
		{"empty recipient", model.DraftRecord{Recipient: "  ", Status: model.DraftStatusCreated}},
		{"unknown status", model.DraftRecord{Recipient: "a@example.com", Status: "sent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.RecordDraft(ctx, tc.rec); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version = %d, want 2", v)
	}
}

func TestNewSQLiteStoreCreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/journal.db"

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	err = s.RecordDraft(context.Background(), model.DraftRecord{
		Recipient: "alice@example.com",
		Folder:    "/data",
		Status:    model.DraftStatusCreated,
	})
	if err != nil {
		t.Fatalf("RecordDraft: %v", err)
	}
}
