// Package tui is the terminal rendition of the portfolio chat panel.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/folio/internal/chat"
	"github.com/kalambet/folio/internal/docset"
)

// LocalFooter is shown when answers are produced on this machine.
const LocalFooter = "Runs locally. No data leaves your machine."

// Conversation is the chat session the panel drives.
type Conversation interface {
	Submit(ctx context.Context, content string) (chat.Message, error)
	Messages() []chat.Message
}

// DocLoader loads the document set. It is called once, when the panel is
// first opened.
type DocLoader interface {
	Docs(ctx context.Context) []docset.Document
}

type replyMsg struct {
	msg chat.Message
	err error
}

type docsLoadedMsg struct {
	count int
}

// Model is the Bubble Tea model for the chat panel.
type Model struct {
	ctx         context.Context
	conv        Conversation
	docs        DocLoader
	suggestions []string
	local       bool
	title       string

	transcript []chat.Message
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model

	open    bool
	loading bool
	loaded  bool
	busy    bool
	status  string
	ready   bool
	width   int
}

// New creates a closed panel. local selects the on-device footer.
func New(ctx context.Context, conv Conversation, docs DocLoader, suggestions []string, local bool) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about experience, projects, or skills"
	ti.CharLimit = 500

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = spinnerStyle

	if len(suggestions) > 4 {
		suggestions = suggestions[:4]
	}

	return Model{
		ctx:         ctx,
		conv:        conv,
		docs:        docs,
		suggestions: suggestions,
		local:       local,
		title:       "Ask me",
		transcript:  conv.Messages(),
		input:       ti,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
	}
}

// WithSubject titles the panel after the first name of canonicalName.
func (m Model) WithSubject(canonicalName string) Model {
	if name := chat.FirstName(canonicalName); name != "" {
		m.title = "Ask about " + name
	}
	return m
}

// Init starts closed; nothing to do until the panel is opened.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key, window and async result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-10)
		m.input.Width = max(10, msg.Width-8)
		m.refresh()
		return m, nil

	case docsLoadedMsg:
		m.loading = false
		m.loaded = true
		m.status = fmt.Sprintf("%d documents loaded", msg.count)
		return m, nil

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.transcript = append(m.transcript, msg.msg)
			m.status = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy && !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+t":
			return m.toggle()
		}
		if !m.open {
			if msg.String() == "q" || msg.String() == "esc" {
				return m, tea.Quit
			}
			return m, nil
		}

		switch key := msg.String(); key {
		case "esc":
			return m.toggle()
		case "enter":
			return m.submit(m.input.Value())
		case "alt+1", "alt+2", "alt+3", "alt+4":
			i := int(key[len(key)-1] - '1')
			if i < len(m.suggestions) && !m.busy {
				m.input.SetValue(m.suggestions[i])
				return m.submit(m.suggestions[i])
			}
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	if !m.open {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) toggle() (tea.Model, tea.Cmd) {
	m.open = !m.open
	if !m.open {
		m.input.Blur()
		return m, nil
	}
	cmds := []tea.Cmd{m.input.Focus()}
	if !m.loaded && !m.loading && m.docs != nil {
		m.loading = true
		m.status = "Loading documents…"
		cmds = append(cmds, m.loadDocs(), m.spinner.Tick)
	}
	m.refresh()
	return m, tea.Batch(cmds...)
}

// submit sends content unless a turn is already in flight.
func (m Model) submit(content string) (tea.Model, tea.Cmd) {
	content = strings.TrimSpace(content)
	if m.busy || content == "" {
		return m, nil
	}
	m.busy = true
	m.status = ""
	m.input.SetValue("")
	m.transcript = append(m.transcript, chat.Message{Role: chat.RoleUser, Content: content})
	m.refresh()
	return m, tea.Batch(m.ask(content), m.spinner.Tick)
}

func (m Model) ask(content string) tea.Cmd {
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		msg, err := conv.Submit(ctx, content)
		return replyMsg{msg: msg, err: err}
	}
}

func (m Model) loadDocs() tea.Cmd {
	docs, ctx := m.docs, m.ctx
	return func() tea.Msg {
		return docsLoadedMsg{count: len(docs.Docs(ctx))}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	width := max(20, m.viewport.Width)
	var b strings.Builder
	for i, msg := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userStyle.Width(width).Render("You: " + msg.Content))
		default:
			b.WriteString(assistantStyle.Width(width).Render(msg.Content))
		}
	}
	return b.String()
}

// View renders the panel, or the launcher line when it is closed.
func (m Model) View() string {
	if !m.open {
		return launcherStyle.Render("💬 Chat  (ctrl+t to open, q to quit)")
	}
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render(m.title)
	body := panelStyle.Render(m.viewport.View())

	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " Thinking…"
	case m.loading:
		status = m.spinner.View() + " " + m.status
	default:
		status = m.status
	}

	var hints []string
	for i, s := range m.suggestions {
		hints = append(hints, fmt.Sprintf("alt+%d %s", i+1, s))
	}

	parts := []string{header, body, statusStyle.Render(status), inputStyle.Render(m.input.View())}
	if len(hints) > 0 {
		parts = append(parts, hintStyle.Render(strings.Join(hints, " · ")))
	}
	if m.local {
		parts = append(parts, footerStyle.Render(LocalFooter))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Align(lipgloss.Right)
	assistantStyle = lipgloss.NewStyle()
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	launcherStyle  = lipgloss.NewStyle().Bold(true)
)
