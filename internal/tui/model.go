package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/futig/rag-chat/internal/entity"
)

// ChatPort is the TUI-facing subset of the chat client.
type ChatPort interface {
	Ask(ctx context.Context, sessionID, question string, onChunk func(string)) error
	History(ctx context.Context, sessionID string) ([]entity.TurnDTO, error)
}

type (
	historyMsg struct {
		turns []entity.TurnDTO
		err   error
	}
	chunkMsg string
	doneMsg  struct{ err error }
)

type line struct {
	role entity.Role
	text string
}

// Model is the Bubble Tea model of the chat client.
type Model struct {
	ctx       context.Context
	client    ChatPort
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	lines     []line
	events    chan tea.Msg
	streaming bool
	status    string
	ready     bool
}

// New creates a chat model for one session.
func New(ctx context.Context, client ChatPort, sessionID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		ctx:       ctx,
		client:    client,
		sessionID: sessionID,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Loading history...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistory())
}

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		turns, err := m.client.History(m.ctx, m.sessionID)
		return historyMsg{turns: turns, err: err}
	}
}

// ask runs the request in the background and feeds its fragments back
// through events, one message per read.
func (m Model) ask(question string, events chan tea.Msg) tea.Cmd {
	go func() {
		err := m.client.Ask(m.ctx, m.sessionID, question, func(s string) {
			events <- chunkMsg(s)
		})
		events <- doneMsg{err: err}
	}()
	return waitFor(events)
}

func waitFor(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		bw, bh := boxStyle.GetFrameSize()
		reserved := 2 + 1 + bh*2 + 1 // header, status, two boxes, input line
		m.viewport.Width = max(20, msg.Width-bw)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.status = "History unavailable: " + msg.err.Error()
			return m, nil
		}
		for _, t := range msg.turns {
			m.lines = append(m.lines, line{role: t.Role, text: t.Content})
		}
		m.status = fmt.Sprintf("Session %s, %d messages", m.sessionID, len(msg.turns))
		m.refresh()
		return m, nil

	case chunkMsg:
		last := &m.lines[len(m.lines)-1]
		last.text += string(msg)
		m.refresh()
		return m, waitFor(m.events)

	case doneMsg:
		m.streaming = false
		switch {
		case msg.err == nil:
			m.status = "Ready"
		case errors.Is(msg.err, ErrIncomplete):
			m.status = "Answer interrupted, it was not saved"
		default:
			m.status = "Error: " + msg.err.Error()
		}
		if last := m.lines[len(m.lines)-1]; last.text == "" {
			m.lines = m.lines[:len(m.lines)-1]
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.streaming {
				return m, nil
			}
			m.input.Reset()
			m.lines = append(m.lines,
				line{role: entity.RoleUser, text: question},
				line{role: entity.RoleAssistant},
			)
			m.streaming = true
			m.status = "Thinking..."
			m.events = make(chan tea.Msg, 16)
			m.refresh()
			return m, m.ask(question, m.events)
		}
		if msg.Type == tea.KeyUp || msg.Type == tea.KeyDown || msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	session := subtleStyle.Render("session " + m.sessionID)
	conversation := boxStyle.Render(m.viewport.View())
	input := boxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + session + "\n" + conversation + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	if len(m.lines) == 0 {
		return subtleStyle.Render("No messages yet.")
	}

	width := max(10, m.viewport.Width)
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label, style := userLabelStyle.Render("You"), userTextStyle
		if l.role == entity.RoleAssistant {
			label, style = botLabelStyle.Render("Bot"), botTextStyle
		}
		text := l.text
		if text == "" && m.streaming && i == len(m.lines)-1 {
			text = "..."
		}
		b.WriteString(label + "\n" + style.Width(width).Render(text))
	}
	return b.String()
}

var (
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userTextStyle  = lipgloss.NewStyle()
	botTextStyle   = lipgloss.NewStyle()
)
