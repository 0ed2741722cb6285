package history

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/maildraft/internal/keys"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
	"github.com/nhle/maildraft/internal/theme"
)

// pageSize is the number of journal entries loaded at once.
const pageSize = 200

// Loader reads journal entries.
type Loader interface {
	GetDrafts(ctx context.Context, filter store.DraftFilter) ([]model.DraftRecord, error)
}

// LoadedMsg carries journal entries loaded in the background.
type LoadedMsg struct {
	Records []model.DraftRecord
	Err     error
}

// BackMsg asks the parent to close the history view.
type BackMsg struct{}

// Model lists recent draft attempts.
type Model struct {
	loader  Loader
	keys    *keys.KeyMap
	table   table.Model
	records []model.DraftRecord
	err     error
	loading bool
	now     func() time.Time
	width   int
	height  int
}

// New creates the history view. A nil loader means the journal is disabled.
func New(loader Loader, km *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(max(height-4, 3)),
	)
	return Model{
		loader: loader,
		keys:   km,
		table:  t,
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// Init loads the journal.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command reading the most recent journal entries.
func (m *Model) Load() tea.Cmd {
	if m.loader == nil {
		return nil
	}
	m.loading = true
	loader := m.loader
	return func() tea.Msg {
		records, err := loader.GetDrafts(context.Background(), store.DraftFilter{Limit: pageSize})
		return LoadedMsg{Records: records, Err: err}
	}
}

// Records returns the loaded entries.
func (m Model) Records() []model.DraftRecord {
	return m.records
}

// Update handles messages for the history view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			m.records = msg.Records
			m.table.SetRows(m.rows())
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			cmd := m.Load()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) rows() []table.Row {
	now := m.now()
	rows := make([]table.Row, 0, len(m.records))
	for _, r := range m.records {
		detail := fmt.Sprintf("%d files", len(r.Attachments))
		if r.Error != "" {
			detail = r.Error
		}
		rows = append(rows, table.Row{
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.Status,
			r.Recipient,
			filepath.Base(r.Folder),
			detail,
		})
	}
	return rows
}

func columns(width int) []table.Column {
	flex := max(width-12-9-4*2-6, 30)
	return []table.Column{
		{Title: "When", Width: 12},
		{Title: "Status", Width: 9},
		{Title: "Recipient", Width: flex * 2 / 5},
		{Title: "Folder", Width: flex / 5},
		{Title: "Detail", Width: flex * 2 / 5},
	}
}

// View renders the journal table.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Draft History")

	var body string
	switch {
	case m.loader == nil:
		body = theme.MutedStyle.Render("Journal disabled (journal.enabled: false)")
	case m.err != nil:
		body = theme.StatusLineStyle(theme.LevelError).Render("Loading journal: " + m.err.Error())
	case m.loading && len(m.records) == 0:
		body = theme.MutedStyle.Render("Loading...")
	case len(m.records) == 0:
		body = theme.MutedStyle.Render("No drafts yet")
	default:
		body = m.table.View() + "\n" + m.summary()
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m Model) summary() string {
	counts := map[string]int{}
	for _, r := range m.records {
		counts[r.Status]++
	}
	return fmt.Sprintf("%s  %s  %s",
		theme.DraftStatusStyle(model.DraftStatusCreated).Render(fmt.Sprintf("%d created", counts[model.DraftStatusCreated])),
		theme.DraftStatusStyle(model.DraftStatusSkipped).Render(fmt.Sprintf("%d skipped", counts[model.DraftStatusSkipped])),
		theme.DraftStatusStyle(model.DraftStatusFailed).Render(fmt.Sprintf("%d failed", counts[model.DraftStatusFailed])),
	)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(max(height-6, 3))
	m.table.SetRows(m.rows())
}
