// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI.
package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/core"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const sidebarWidth = 28

// Model is the Bubble Tea model for the conversation view.
type Model struct {
	svc    *core.ChatService
	cfg    *config.Config
	theme  *styles.Theme
	runner *Runner
	buffer *StreamingBuffer

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	focus        focusArea
	sidebarIndex int

	streaming bool
	status    string
	errText   string
}

// New creates the conversation view. Call SetProgram on the returned model's
// Runner once the program exists.
func New(svc *core.ChatService, cfg *config.Config) *Model {
	theme := styles.NewTheme(styles.DetectDark(cfg.UI.Theme))

	input := textarea.New()
	input.Placeholder = "Ask about the codebase..."
	input.CharLimit = cfg.Chat.MaxMessageLength
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = theme.Spinner

	buffer := NewStreamingBuffer()

	return &Model{
		svc:    svc,
		cfg:    cfg,
		theme:  theme,
		buffer: buffer,
		runner: NewRunner(svc, buffer),
		input:  input,
		spin:   spin,
	}
}

// Runner exposes the send runner so the program can be bound after
// tea.NewProgram.
func (m *Model) Runner() *Runner {
	return m.runner
}

// Init loads the chat list.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, loadChatsCmd(m.svc))
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		if _, ok := m.buffer.Flush(); ok {
			m.refreshTranscript()
		}
		if m.streaming {
			return m, streamTickCmd()
		}
		return m, nil

	case StreamStatusMsg:
		m.status = msg.Message
		return m, nil

	case StreamSourcesMsg:
		m.status = pluralSources(msg.Count)
		return m, nil

	case StreamDoneMsg:
		m.streaming = false
		m.status = ""
		m.buffer.ForceFlush()
		m.refreshTranscript()
		m.viewport.GotoBottom()
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, clearErrorCmd()
		}
		return m, nil

	case ChatsLoadedMsg:
		m.clampSidebar()
		return m, nil

	case ChatOpenedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, clearErrorCmd()
		}
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case ChatDeletedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, clearErrorCmd()
		}
		m.clampSidebar()
		m.refreshTranscript()
		return m, nil

	case ConfigReloadedMsg:
		m.cfg = msg.Cfg
		m.theme = styles.NewTheme(styles.DetectDark(msg.Cfg.UI.Theme))
		m.spin.Style = m.theme.Spinner
		m.input.CharLimit = msg.Cfg.Chat.MaxMessageLength
		if m.ready {
			m.resize(m.width, m.height)
			m.refreshTranscript()
		}
		return m, nil

	case ClearErrorMsg:
		m.errText = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.streaming {
			return m, cmd
		}
		return m, nil
	}

	return m.updateChildren(msg)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.runner.Cancel()
		return m, tea.Quit

	case "esc":
		if m.streaming {
			m.runner.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case "tab":
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case "ctrl+n":
		m.svc.NewChat()
		m.sidebarIndex = 0
		m.refreshTranscript()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if msg.Type == tea.KeyEnter && !msg.Alt {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chats := m.svc.State().ChatEntries()
	switch msg.String() {
	case "up", "k":
		if m.sidebarIndex > 0 {
			m.sidebarIndex--
		}
	case "down", "j":
		if m.sidebarIndex < len(chats)-1 {
			m.sidebarIndex++
		}
	case "enter":
		if m.sidebarIndex < len(chats) {
			return m, openChatCmd(m.svc, chats[m.sidebarIndex].ID)
		}
	case "ctrl+d":
		if m.sidebarIndex < len(chats) {
			return m, deleteChatCmd(m.svc, chats[m.sidebarIndex].ID)
		}
	case "r":
		return m, loadChatsCmd(m.svc)
	}
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.streaming {
		return m, nil
	}

	m.input.Reset()
	m.buffer.Reset()
	m.streaming = true
	m.status = "Thinking"
	m.runner.Send(text)
	m.refreshTranscript()
	m.viewport.GotoBottom()

	return m, tea.Batch(streamTickCmd(), m.spin.Tick)
}

func (m *Model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	mainWidth := width - sidebarWidth - 2
	if mainWidth < 20 {
		mainWidth = 20
	}
	viewportHeight := height - m.chromeHeight()
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(mainWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(width - 4)

	wrap := mainWidth - 2
	if m.cfg.UI.WordWrap > 0 && m.cfg.UI.WordWrap < wrap {
		wrap = m.cfg.UI.WordWrap
	}
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		m.renderer = r
	}
}

// chromeHeight is everything above and below the transcript: header, input
// box with its counter line, status bar, error line.
func (m *Model) chromeHeight() int {
	return 2 + 6 + 1 + 1
}

func (m *Model) clampSidebar() {
	if n := len(m.svc.State().ChatEntries()); m.sidebarIndex >= n && n > 0 {
		m.sidebarIndex = n - 1
	} else if n == 0 {
		m.sidebarIndex = 0
	}
}

func pluralSources(n int) string {
	if n == 1 {
		return "1 source found"
	}
	return strconv.Itoa(n) + " sources found"
}
