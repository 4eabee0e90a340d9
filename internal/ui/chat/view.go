// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/model"
	"github.com/jeranaias/jarvis-tui/internal/sources"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// View renders the full screen.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.ErrorText.Render(util.TruncateRunes(m.errText, m.width-2)))
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Jarvis")
	subtitle := m.theme.HeaderSubtitle.Render("codebase q&a")
	return m.theme.Header.Width(m.width).Render(title + "  " + subtitle)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	chats := m.svc.State().ChatEntries()

	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n\n")

	if len(chats) == 0 {
		b.WriteString(m.theme.SidebarTimestamp.Render("No chats yet"))
	}
	for i, c := range chats {
		title := util.PadCell(c.Title, sidebarWidth-4)
		line := m.theme.SidebarItem.Render(title)
		if m.focus == focusSidebar && i == m.sidebarIndex {
			line = m.theme.SidebarSelected.Render(title)
		} else if c.Current {
			line = m.theme.RoleUser.Render(title)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript rebuilds the viewport content from the current chat.
// Messages are read as snapshots; the live accumulator is never touched
// outside the state lock.
func (m *Model) refreshTranscript() {
	msgs, ok := m.svc.State().CurrentTranscript()
	if !ok {
		m.viewport.SetContent(m.theme.ThinkingText.Render(
			"Start a new conversation with ctrl+n, or just type a question."))
		return
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.streaming && m.status != "" {
		b.WriteString(m.spin.View())
		b.WriteString(m.theme.StatusLine.Render(m.status))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) renderMessage(msg model.MessageView) string {
	width := m.viewport.Width - 4

	switch msg.Role {
	case model.RoleUser:
		label := m.theme.RoleUser.Render("You")
		return label + "\n" + m.theme.UserBubble.Width(width).Render(msg.Content) + "\n"

	default:
		label := m.theme.RoleAssistant.Render("Jarvis")
		content := msg.Content

		// Markdown is only rendered once the message is final; re-rendering
		// a half-open code fence every frame tears badly.
		if !msg.Streaming && m.renderer != nil {
			if rendered, err := m.renderer.Render(content); err == nil {
				content = strings.TrimRight(rendered, "\n")
			}
		}

		out := label + "\n" + m.theme.AssistantBubble.Width(width).Render(content) + "\n"
		if !msg.Streaming && m.cfg.UI.ShowSources && len(msg.Sources) > 0 {
			out += m.renderSources(msg.Sources)
		}
		return out
	}
}

func (m *Model) renderSources(srcs []sources.Source) string {
	var b strings.Builder
	b.WriteString(m.theme.SourceTitle.Render(fmt.Sprintf("Sources (%d)", len(srcs))))
	b.WriteString("\n")
	for i, s := range srcs {
		b.WriteString(fmt.Sprintf("  %d. %s", i+1,
			m.theme.SourceTitle.Render(util.TruncateRunes(s.Title, m.viewport.Width-16))))
		if s.RelevanceScore > 0 {
			b.WriteString("  " + m.theme.SourceScore.Render(fmt.Sprintf("%.0f%%", s.RelevanceScore*100)))
		}
		b.WriteString("\n")
		if s.URL != sources.PlaceholderURL {
			b.WriteString("     " + m.theme.SourceURL.Render(s.URL) + "\n")
		}
	}
	return b.String()
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m *Model) renderInput() string {
	box := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())

	used := len([]rune(m.input.Value()))
	limit := m.cfg.Chat.MaxMessageLength
	count := fmt.Sprintf("%d/%d", used, limit)
	style := m.theme.CharCount
	if limit > 0 && used > limit*9/10 {
		style = m.theme.CharCountWarning
	}
	return box + "\n" + style.Render(count)
}

func (m *Model) renderStatusBar() string {
	shortcuts := []struct{ key, desc string }{
		{"enter", "send"},
		{"tab", "chats"},
		{"ctrl+n", "new"},
		{"esc", "quit"},
	}
	if m.streaming {
		shortcuts[3] = struct{ key, desc string }{"esc", "cancel"}
	}

	parts := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts = append(parts,
			m.theme.ShortcutKey.Render(s.key)+" "+m.theme.ShortcutDesc.Render(s.desc))
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
