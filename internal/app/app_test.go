package app

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/composer"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
	"github.com/nhle/maildraft/internal/ui/draftform"
	"github.com/nhle/maildraft/internal/ui/history"
)

type nopDrafter struct{}

func (nopDrafter) Compose(context.Context, model.DraftRequest) (*composer.Result, error) {
	return &composer.Result{}, nil
}

type emptyJournal struct{}

func (emptyJournal) GetDrafts(context.Context, store.DraftFilter) ([]model.DraftRecord, error) {
	return nil, nil
}

func newTestApp() Model {
	return New(Deps{
		Drafter:  nopDrafter{},
		Selector: attach.NewSelector(afero.NewMemMapFs()),
		Journal:  emptyJournal{},
		Form:     draftform.Options{UserEmail: "me@acme.org"},
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

func TestViewRouting(t *testing.T) {
	m := newTestApp()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if !strings.Contains(m.View(), "me@acme.org") {
		t.Error("header does not show the detected user")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.CurrentView() != ViewHistory {
		t.Fatalf("view = %v, want history", m.CurrentView())
	}
	if cmd == nil {
		t.Fatal("expected journal load command")
	}
	if _, ok := cmd().(history.LoadedMsg); !ok {
		t.Error("expected history.LoadedMsg")
	}

	m, _ = update(t, m, history.BackMsg{})
	if m.CurrentView() != ViewForm {
		t.Errorf("view = %v, want form", m.CurrentView())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	if m.CurrentView() != ViewHelp {
		t.Fatalf("view = %v, want help", m.CurrentView())
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help overlay not rendered")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.CurrentView() != ViewForm {
		t.Errorf("view = %v, want form", m.CurrentView())
	}
}

func TestDraftResultReachesFormFromHistory(t *testing.T) {
	m := newTestApp()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})

	m, _ = update(t, m, draftform.DraftResultMsg{Attachments: 3})
	if !strings.Contains(m.form.Status().Text, "3 attachments") {
		t.Errorf("form status = %+v", m.form.Status())
	}
}

func TestQuit(t *testing.T) {
	m := newTestApp()
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
