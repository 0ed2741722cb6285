package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/maildraft/internal/keys"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
	"github.com/nhle/maildraft/tests/testutil"
)

type fakeLoader struct {
	records []model.DraftRecord
	err     error
	filter  store.DraftFilter
}

func (f *fakeLoader) GetDrafts(_ context.Context, filter store.DraftFilter) ([]model.DraftRecord, error) {
	f.filter = filter
	return f.records, f.err
}

func TestLoadAndRender(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	loader := &fakeLoader{records: []model.DraftRecord{
		{
			Recipient:   "alice@example.com",
			Folder:      "/data/alice",
			Attachments: []string{"a.pdf", "b.xlsx"},
			Status:      model.DraftStatusCreated,
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			Recipient: "bob@example.com",
			Folder:    "/data/bob",
			Status:    model.DraftStatusFailed,
			Error:     "save failed",
			CreatedAt: now.Add(-time.Minute),
		},
	}}

	m := New(loader, keys.DefaultKeyMap(), 120, 30)
	m.now = func() time.Time { return now }

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected load command")
	}
	msg := cmd()
	if loader.filter.Limit != pageSize {
		t.Errorf("limit = %d", loader.filter.Limit)
	}

	m, _ = m.Update(msg)
	if len(m.Records()) != 2 {
		t.Fatalf("records = %d", len(m.Records()))
	}

	rows := m.rows()
	if rows[0][0] != "2 hours ago" || rows[0][3] != "alice" || rows[0][4] != "2 files" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1][4] != "save failed" {
		t.Errorf("row 1 = %v", rows[1])
	}

	view := m.View()
	if !strings.Contains(view, "1 created") || !strings.Contains(view, "1 failed") {
		t.Errorf("view missing summary:\n%s", view)
	}
}

func TestLoadError(t *testing.T) {
	m := New(&fakeLoader{err: errors.New("db locked")}, keys.DefaultKeyMap(), 100, 30)
	m, _ = m.Update(m.Init()())

	if !strings.Contains(m.View(), "db locked") {
		t.Error("view does not show load error")
	}
}

func TestJournalDisabled(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 30)
	if m.Init() != nil {
		t.Error("expected no load command without a journal")
	}
	if !strings.Contains(m.View(), "Journal disabled") {
		t.Error("view does not say the journal is disabled")
	}
}

func TestBackKey(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected back command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Error("expected BackMsg")
	}
}

func TestLoadFromJournal(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedDrafts(t, s,
		model.DraftRecord{Recipient: "alice@example.com", Folder: "/data/alice", Attachments: []string{"a.pdf"}},
		model.DraftRecord{Recipient: "ghost@example.com", Folder: "/data/ghost", Status: model.DraftStatusSkipped, Error: "folder not found"},
	)

	m := New(s, keys.DefaultKeyMap(), 120, 30)
	m, _ = m.Update(m.Init()())

	if len(m.Records()) != 2 {
		t.Fatalf("records = %d, want 2", len(m.Records()))
	}
	view := m.View()
	for _, want := range []string{"alice@example.com", "ghost@example.com", "folder not found"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
