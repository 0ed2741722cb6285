package draftform

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/composer"
	"github.com/nhle/maildraft/internal/htmlbody"
	"github.com/nhle/maildraft/internal/keys"
	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/theme"
)

// Drafter creates one draft per request.
type Drafter interface {
	Compose(ctx context.Context, req model.DraftRequest) (*composer.Result, error)
}

// DraftResultMsg carries the outcome of a background compose back to the
// UI loop.
type DraftResultMsg struct {
	Attachments int
	Ref         string
	Err         error
}

// Options holds the form defaults and the detected user address.
type Options struct {
	Subject    string
	Body       string
	BodyFormat string
	UserEmail  string
}

// Status is the text and level of the status line.
type Status struct {
	Text  string
	Level string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	folder    string
	recipient string
	subject   string
	body      string
}

// Model is the Bubble Tea model of the draft form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	drafter  Drafter
	selector *attach.Selector
	keys     *keys.KeyMap
	opts     Options
	spinner  spinner.Model

	lastFolder string
	preview    []attach.File
	status     Status
	busy       bool
	width      int
	height     int
}

// New creates the draft form with default subject and body.
func New(drafter Drafter, selector *attach.Selector, km *keys.KeyMap, opts Options, width, height int) Model {
	if opts.Subject == "" {
		opts.Subject = model.DefaultSubject
	}
	if opts.Body == "" {
		opts.Body = model.DefaultFormBody
	}
	m := Model{
		fb:       &formBindings{subject: opts.Subject, body: opts.Body},
		drafter:  drafter,
		selector: selector,
		keys:     km,
		opts:     opts,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:   Status{Text: "Ready", Level: theme.LevelReady},
		width:    width,
		height:   height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Status returns the current status line.
func (m Model) Status() Status {
	return m.status
}

// Busy reports whether a draft is being created.
func (m Model) Busy() bool {
	return m.busy
}

// Preview returns the attachable files of the current folder.
func (m Model) Preview() []attach.File {
	return m.preview
}

// Update handles messages for the draft form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DraftResultMsg:
		m.busy = false
		if msg.Err != nil {
			text := "Error creating email draft: " + msg.Err.Error()
			if mailclient.IsAuthError(msg.Err) {
				text += " (run `maildraft login`)"
			}
			m.status = Status{Text: text, Level: theme.LevelError}
		} else {
			m.status = Status{
				Text:  fmt.Sprintf("Email draft created successfully with %d attachments!", msg.Attachments),
				Level: theme.LevelSuccess,
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Create):
			return m.createDraft()
		case key.Matches(msg, m.keys.Clear):
			cmd := m.ClearAll()
			return m, cmd
		case key.Matches(msg, m.keys.SendToSelf):
			cmd := m.SendToSelf()
			return m, cmd
		}
	}

	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	m.refreshPreview()

	// Submitting the last field is the same as the create action.
	switch m.form.State {
	case huh.StateCompleted:
		var createCmd tea.Cmd
		m, createCmd = m.createDraft()
		rebuildCmd := m.rebuild()
		return m, tea.Batch(createCmd, rebuildCmd)
	case huh.StateAborted:
		rebuildCmd := m.rebuild()
		return m, rebuildCmd
	}

	return m, cmd
}

// refreshPreview reruns file selection when the folder field changed.
func (m *Model) refreshPreview() {
	folder := strings.TrimSpace(m.fb.folder)
	if folder == m.lastFolder {
		return
	}
	m.lastFolder = folder
	m.preview = nil

	if m.busy {
		if folder != "" && m.selector.FolderExists(folder) {
			m.preview = m.selector.Preview(folder)
		}
		return
	}

	if folder == "" || !m.selector.FolderExists(folder) {
		m.status = Status{Text: "Ready", Level: theme.LevelReady}
		return
	}

	m.preview = m.selector.Preview(folder)
	if len(m.preview) > 0 {
		m.status = Status{Text: fmt.Sprintf("Found %d files to attach", len(m.preview)), Level: theme.LevelInfo}
	} else {
		m.status = Status{Text: "No attachable files found in selected folder", Level: theme.LevelWarning}
	}
}

// createDraft validates the inputs and dispatches the compose command.
func (m Model) createDraft() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	req := model.DraftRequest{
		Recipient: m.fb.recipient,
		Subject:   m.fb.subject,
		Folder:    m.fb.folder,
	}.Trimmed()

	switch {
	case req.Folder == "":
		m.status = Status{Text: "Please select a folder first", Level: theme.LevelError}
		return m, nil
	case req.Recipient == "":
		m.status = Status{Text: "Please enter recipient email address", Level: theme.LevelError}
		return m, nil
	case req.Subject == "":
		m.status = Status{Text: "Please enter email subject", Level: theme.LevelError}
		return m, nil
	case !m.selector.FolderExists(req.Folder):
		m.status = Status{Text: "Folder not found: " + req.Folder, Level: theme.LevelError}
		return m, nil
	}

	if len(m.selector.Select(req.Folder)) == 0 {
		m.status = Status{Text: "No files to attach found", Level: theme.LevelWarning}
		return m, nil
	}

	body, err := m.htmlBody()
	if err != nil {
		m.status = Status{Text: "Error creating email draft: " + err.Error(), Level: theme.LevelError}
		return m, nil
	}
	req.HTMLBody = body

	m.busy = true
	m.status = Status{Text: "Creating email draft...", Level: theme.LevelInfo}
	return m, tea.Batch(m.spinner.Tick, composeCmd(m.drafter, req))
}

// htmlBody converts the body field to HTML.
func (m Model) htmlBody() (string, error) {
	text := strings.TrimSpace(m.fb.body)
	if m.opts.BodyFormat == model.BodyFormatMarkdown {
		return htmlbody.FromMarkdown(text)
	}
	return htmlbody.FromPlainText(text), nil
}

// composeCmd runs the composer off the UI loop.
func composeCmd(d Drafter, req model.DraftRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := d.Compose(context.Background(), req)
		if err != nil {
			return DraftResultMsg{Err: err}
		}
		return DraftResultMsg{Attachments: len(res.Attachments), Ref: res.DraftRef}
	}
}

// ClearAll resets every field to its default. The detected user address
// is kept.
func (m *Model) ClearAll() tea.Cmd {
	m.fb.folder = ""
	m.fb.recipient = ""
	m.fb.subject = m.opts.Subject
	m.fb.body = m.opts.Body
	m.lastFolder = ""
	m.preview = nil
	m.status = Status{Text: "Ready", Level: theme.LevelReady}
	return m.rebuild()
}

// SendToSelf fills the recipient with the detected user address.
func (m *Model) SendToSelf() tea.Cmd {
	m.fb.recipient = m.opts.UserEmail
	return m.rebuild()
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

// rebuild recreates the form so fields show values changed outside huh.
func (m *Model) rebuild() tea.Cmd {
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Folder").
				Description("Directory whose PDF, PPTX and XLSX files are attached").
				Placeholder("/path/to/documents").
				Value(&m.fb.folder),
			huh.NewInput().
				Title("Recipient").
				Placeholder("name@example.com").
				Value(&m.fb.recipient),
			huh.NewInput().
				Title("Subject").
				Value(&m.fb.subject),
			huh.NewText().
				Title("Body").
				Lines(6).
				Value(&m.fb.body),
		),
	).WithShowHelp(false).WithWidth(m.formWidth())
}

// View renders the form, the attachment preview and the status line.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("New Draft")

	formView := ""
	if m.form != nil {
		formView = m.form.View()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.formWidth()+2).Render(formView),
		m.previewView(),
	)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, "", m.statusView()))
}

func (m Model) previewView() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Files to attach"))
	b.WriteString("\n")

	switch {
	case m.lastFolder == "":
		b.WriteString(theme.MutedStyle.Render("No folder selected"))
	case len(m.preview) == 0:
		b.WriteString(theme.MutedStyle.Render("No attachable files"))
	default:
		var total int64
		for _, f := range m.preview {
			total += f.Size
			b.WriteString(f.Name)
			b.WriteString(" ")
			b.WriteString(theme.MutedStyle.Render(humanize.Bytes(uint64(f.Size))))
			b.WriteString("\n")
		}
		b.WriteString(theme.MutedStyle.Render(
			fmt.Sprintf("%d files, %s", len(m.preview), humanize.Bytes(uint64(total))),
		))
	}

	return theme.PanelStyle.Width(m.previewWidth()).Render(b.String())
}

func (m Model) statusView() string {
	text := m.status.Text
	if m.busy {
		text = m.spinner.View() + " " + text
	}
	line := theme.StatusLineStyle(m.status.Level).Render(text)
	if m.opts.UserEmail != "" {
		line += theme.MutedStyle.Render("  ·  you: " + m.opts.UserEmail)
	}
	return line
}

func (m Model) formWidth() int {
	w := (m.width - 4) * 3 / 5
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) previewWidth() int {
	w := m.width - 4 - m.formWidth() - 6
	if w < 30 {
		w = 30
	}
	return w
}
