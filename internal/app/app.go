package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/keys"
	"github.com/nhle/maildraft/internal/ui"
	"github.com/nhle/maildraft/internal/ui/draftform"
	helpview "github.com/nhle/maildraft/internal/ui/help"
	"github.com/nhle/maildraft/internal/ui/history"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewForm ViewState = iota
	ViewHistory
	ViewHelp
)

// Deps are the collaborators of the terminal program.
type Deps struct {
	Drafter  draftform.Drafter
	Selector *attach.Selector

	// Journal may be nil when the journal is disabled.
	Journal history.Loader

	Form draftform.Options
}

// Model is the root Bubble Tea model that routes between the draft form,
// the history view and the help overlay.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	form         draftform.Model
	history      history.Model
	helpView     helpview.Model
	userEmail    string
	ready        bool
}

// New creates the root application model.
func New(deps Deps) Model {
	km := keys.DefaultKeyMap()
	return Model{
		currentView: ViewForm,
		keys:        km,
		form:        draftform.New(deps.Drafter, deps.Selector, km, deps.Form, 80, 24),
		history:     history.New(deps.Journal, km, 80, 24),
		helpView:    helpview.New(km, 80, 24),
		userEmail:   deps.Form.UserEmail,
	}
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		h := m.layout.ContentHeight()
		m.form.SetSize(msg.Width, h)
		m.history.SetSize(msg.Width, h)
		m.helpView.SetSize(msg.Width, h)
		// Forward to the form so huh can calculate its layout.
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case draftform.DraftResultMsg:
		// The result belongs to the form whichever view is showing.
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case history.LoadedMsg:
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd

	case history.BackMsg:
		m.currentView = ViewForm
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.History):
			if m.currentView == ViewHistory {
				m.currentView = ViewForm
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHistory
			cmd := m.history.Load()
			return m, cmd

		case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
			m.currentView = m.previousView
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewHistory:
		m.history, cmd = m.history.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("maildraft", m.userEmail)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHistory:
		return m.history.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.form.View()
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "f1 close help | esc back"
	case ViewHistory:
		return "j/k move | r reload | esc back | ctrl+c quit"
	default:
		if m.form.Busy() {
			return "creating draft... | ctrl+o history | ctrl+c quit"
		}
		return "tab next field | ctrl+s create | ctrl+t send to self | ctrl+r clear | ctrl+o history | f1 help"
	}
}
