// Package tui is the interactive operator console.
//
// The bubbletea program is the session's event loop: network completions and
// stream events arrive as dispatchMsg values and run inside Update, which is
// the only place session state is touched.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/takeover/internal/control"
	"github.com/raphaelgruber/takeover/internal/directory"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/session"
)

const (
	sidebarWidth   = 26
	statusInterval = time.Second
)

// dispatchMsg carries a session completion onto the program goroutine.
type dispatchMsg func()

// statusTickMsg refreshes the connection indicator.
type statusTickMsg time.Time

type pane int

const (
	paneEmpty pane = iota
	paneLoading
	paneReady
	paneFailed
)

// Model is the console. It implements session.Surface; the manager calls
// those methods from inside Update.
type Model struct {
	ctx       context.Context
	manager   *session.Manager
	theme     render.Theme
	connected func() bool

	entries  []directory.Entry
	loaded   bool
	cursorID models.ConversationID

	activeID models.ConversationID
	pane     pane
	blocks   []render.Block
	fetchErr error

	status    models.ControlStatus
	hasStatus bool
	pending   bool
	notice    string
	live      bool
	viewport  viewport.Model
	input     textinput.Model
	width     int
	height    int
	quitting  bool
}

func newModel(ctx context.Context, theme render.Theme, connected func() bool) *Model {
	in := textinput.New()
	in.Placeholder = "Type a reply and press enter"
	in.Prompt = "> "
	in.CharLimit = 4096

	return &Model{
		ctx:       ctx,
		theme:     theme,
		connected: connected,
		viewport:  viewport.New(),
		input:     in,
	}
}

// Init loads the directory and starts the connection indicator.
func (m *Model) Init() tea.Cmd {
	m.manager.Start(m.ctx)
	return tea.Batch(statusTick(), textinput.Blink)
}

// Update handles messages and returns the updated model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg()
		return m, nil

	case statusTickMsg:
		if m.connected != nil {
			m.live = m.connected()
		}
		return m, statusTick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyPressMsg:
		if m.input.Focused() {
			return m, m.updateInput(msg)
		}
		return m, m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "enter":
		if m.cursorID != "" {
			m.notice = ""
			m.manager.Select(m.ctx, m.cursorID)
		}
	case "t":
		m.notice = ""
		m.manager.ToggleControl(m.ctx)
	case "r", "tab":
		if !m.manager.CanReply() {
			if m.activeID != "" {
				m.notice = "Take over the conversation to reply."
			}
			return nil
		}
		return m.input.Focus()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateInput(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "esc":
		m.input.Blur()
		return nil
	case "enter":
		text := m.input.Value()
		m.input.Reset()
		m.manager.SubmitReply(m.ctx, text)
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) moveCursor(delta int) {
	if len(m.entries) == 0 {
		return
	}
	i := m.cursorIndex() + delta
	i = max(0, min(i, len(m.entries)-1))
	m.cursorID = m.entries[i].ID
}

func (m *Model) cursorIndex() int {
	for i, e := range m.entries {
		if e.ID == m.cursorID {
			return i
		}
	}
	return 0
}

func (m *Model) transcriptWidth() int {
	return max(m.width-sidebarWidth-3, 20)
}

// layout sizes the viewport to the window.
func (m *Model) layout() {
	w := m.transcriptWidth()
	// header, control line, input, status line and borders
	h := max(m.height-6, 3)
	m.viewport.SetWidth(w)
	m.viewport.SetHeight(h)
	m.input.SetWidth(w - 4)
	m.refreshTranscript(m.viewport.AtBottom())
}

// refreshTranscript re-renders the transcript pane content.
func (m *Model) refreshTranscript(toBottom bool) {
	var content string
	switch m.pane {
	case paneEmpty:
		content = m.theme.HintStyle().Render("Select a conversation.")
	case paneLoading:
		content = m.theme.HintStyle().Render("Loading messages...")
	case paneFailed:
		content = m.theme.ErrorStyle().Render("Could not load conversation: " + m.fetchErr.Error())
	case paneReady:
		if len(m.blocks) == 0 {
			content = m.theme.HintStyle().Render("No messages yet.")
		} else {
			content = m.theme.Transcript(m.blocks, m.transcriptWidth()-2)
		}
	}
	m.viewport.SetContent(content)
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// View renders the console.
func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.WindowTitle = "takeover"
	return v
}

func (m *Model) render() string {
	sidebar := lipgloss.NewStyle().
		Width(sidebarWidth).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(m.theme.Hint).
		Render(m.renderDirectory())

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)
	return body + "\n" + m.renderStatus()
}

func (m *Model) renderDirectory() string {
	title := lipgloss.NewStyle().Bold(true).Render("Conversations")
	if len(m.entries) == 0 {
		if !m.loaded {
			return title + "\n" + m.theme.HintStyle().Render("Loading conversations...")
		}
		return title + "\n" + m.theme.HintStyle().Render("No conversations found.")
	}

	lines := []string{title}
	for _, e := range m.entries {
		cursor := "  "
		if e.ID == m.cursorID {
			cursor = "› "
		}
		mark := " "
		if e.Highlighted {
			mark = lipgloss.NewStyle().Foreground(m.theme.Media).Render("●")
		}
		label := truncate(e.ID.String(), sidebarWidth-5)
		style := lipgloss.NewStyle()
		if e.Active {
			style = style.Bold(true).Foreground(m.theme.User)
		}
		lines = append(lines, cursor+mark+" "+style.Render(label))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	if m.activeID == "" {
		return lipgloss.NewStyle().Bold(true).Render("takeover") + "\n" +
			m.theme.HintStyle().Render("↑/↓ choose · enter open · q quit")
	}

	header := lipgloss.NewStyle().Bold(true).Render("Chat with " + m.activeID.String())
	var ctl string
	switch {
	case !m.hasStatus:
		ctl = m.theme.HintStyle().Render("control: ...")
	case m.pending:
		ctl = fmt.Sprintf("controlled by %s · %s", m.status, m.theme.HintStyle().Render("updating..."))
	default:
		ctl = fmt.Sprintf("controlled by %s · t: %s", m.statusStyle().Render(string(m.status)), control.Label(m.status))
	}
	return header + "\n" + ctl
}

func (m *Model) statusStyle() lipgloss.Style {
	if m.status == models.ControlAdmin {
		return lipgloss.NewStyle().Foreground(m.theme.Admin).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(m.theme.Bot)
}

func (m *Model) renderInput() string {
	if m.activeID == "" || !m.hasStatus || m.status != models.ControlAdmin {
		return ""
	}
	if m.input.Focused() {
		return m.input.View()
	}
	return m.theme.HintStyle().Render("r: reply")
}

func (m *Model) renderStatus() string {
	conn := lipgloss.NewStyle().Foreground(m.theme.Bot).Render("● live")
	if !m.live {
		conn = lipgloss.NewStyle().Foreground(m.theme.Error).Render("○ reconnecting")
	}
	if m.notice != "" {
		return conn + "  " + m.theme.ErrorStyle().Render(m.notice)
	}
	return conn
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
