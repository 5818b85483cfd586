// Package tui is a terminal chat client for the finrag server. It streams
// answers over the SSE endpoint and renders the conversation in a viewport.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type streamEventMsg struct {
	ev Event
	ch <-chan Event
}

type streamClosedMsg struct{}

type streamFailedMsg struct{ err error }

// Model is the Bubble Tea model for the chat client.
type Model struct {
	client     *Client
	input      textinput.Model
	viewport   viewport.Model
	transcript string
	status     string
	streaming  bool
	ready      bool
}

// New creates a chat model bound to the given API client.
func New(client *Client, banner string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your transactions and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{client: client, input: ti, viewport: vp, status: banner}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ph := promptBoxStyle.GetFrameSize()
		reserved := 2 + ph + ch // header + status + frames
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-4)
		m.viewport.Height = vh
		m.viewport.SetContent(m.transcript)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.Reset()
			m.appendLine(userStyle.Render("You: ") + q)
			m.appendLine("")
			m.streaming = true
			m.status = "Thinking…"
			return m, m.startStream(q)
		}

	case streamFailedMsg:
		m.streaming = false
		m.status = errorStyle.Render("Error: " + msg.err.Error())
		return m, nil

	case streamEventMsg:
		return m.handleEvent(msg)

	case streamClosedMsg:
		m.streaming = false
		if m.status == "Thinking…" {
			m.status = "Ready."
		}
		m.appendLine("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	switch msg.ev.Kind {
	case "metadata":
		meta := fmt.Sprintf("[%s · %d matches", msg.ev.Mode, msg.ev.Matching)
		if len(msg.ev.Filters) > 0 {
			meta += " · " + strings.Join(msg.ev.Filters, ", ")
		}
		meta += "]"
		m.appendLine(metaStyle.Render(meta))
	case "chunk":
		m.transcript += msg.ev.Text
		m.viewport.SetContent(m.transcript)
		m.viewport.GotoBottom()
	case "error":
		m.streaming = false
		m.status = errorStyle.Render("Error: " + msg.ev.Err.Error())
		return m, nil
	case "done":
		m.status = "Ready."
	}
	return m, waitForEvent(msg.ch)
}

func (m *Model) startStream(prompt string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ch, err := client.Stream(prompt)
		if err != nil {
			return streamFailedMsg{err: err}
		}
		return nextEvent(ch)
	}
}

func waitForEvent(ch <-chan Event) tea.Cmd {
	return func() tea.Msg { return nextEvent(ch) }
}

func nextEvent(ch <-chan Event) tea.Msg {
	ev, ok := <-ch
	if !ok {
		return streamClosedMsg{}
	}
	return streamEventMsg{ev: ev, ch: ch}
}

func (m *Model) appendLine(line string) {
	m.transcript += line + "\n"
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Connecting…"
	}
	header := lipgloss.NewStyle().Bold(true).Render("finrag chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := promptBoxStyle.Render(m.input.View())
	return header + "\n" + chat + "\n" + input + "\n" + metaStyle.Render(m.status)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
