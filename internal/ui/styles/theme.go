// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the jarvis TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	StatusLine      lipgloss.Style
	RoleUser        lipgloss.Style
	RoleAssistant   lipgloss.Style

	// ==========================================================================
	// SOURCES
	// ==========================================================================

	SourceTitle lipgloss.Style
	SourceURL   lipgloss.Style
	SourceScore lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar          lipgloss.Style
	SidebarTitle     lipgloss.Style
	SidebarItem      lipgloss.Style
	SidebarSelected  lipgloss.Style
	SidebarTimestamp lipgloss.Style

	// ==========================================================================
	// INPUT AREA
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
	ErrorBox     lipgloss.Style
	ErrorText    lipgloss.Style
}

// DetectDark resolves the configured theme name against the terminal.
// "dark" and "light" force a palette; anything else autodetects.
func DetectDark(themeSetting string) bool {
	switch themeSetting {
	case "dark":
		return true
	case "light":
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// NewTheme builds the full style set for a palette.
func NewTheme(isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	var (
		accent    = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
		secondary = lipgloss.AdaptiveColor{Light: "133", Dark: "170"}
		muted     = lipgloss.AdaptiveColor{Light: "245", Dark: "240"}
		text      = lipgloss.AdaptiveColor{Light: "235", Dark: "252"}
		errorRed  = lipgloss.AdaptiveColor{Light: "124", Dark: "196"}
		green     = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	)

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(muted).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(muted)

	t.UserBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Padding(0, 1)
	t.StatusLine = lipgloss.NewStyle().Foreground(muted).Italic(true)
	t.RoleUser = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.RoleAssistant = lipgloss.NewStyle().Bold(true).Foreground(secondary)

	t.SourceTitle = lipgloss.NewStyle().Foreground(text)
	t.SourceURL = lipgloss.NewStyle().Foreground(muted).Underline(true)
	t.SourceScore = lipgloss.NewStyle().Foreground(green)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(muted).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.SidebarItem = lipgloss.NewStyle().Foreground(text)
	t.SidebarSelected = lipgloss.NewStyle().Bold(true).Foreground(accent).Reverse(true)
	t.SidebarTimestamp = lipgloss.NewStyle().Foreground(muted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.CharCount = lipgloss.NewStyle().Foreground(muted)
	t.CharCountWarning = lipgloss.NewStyle().Foreground(errorRed).Bold(true)

	t.StatusBar = lipgloss.NewStyle().Foreground(muted)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(text)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(muted)

	t.Spinner = lipgloss.NewStyle().Foreground(secondary)
	t.ThinkingText = lipgloss.NewStyle().Foreground(muted).Italic(true)
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(errorRed).
		Padding(0, 1)
	t.ErrorText = lipgloss.NewStyle().Foreground(errorRed)

	return t
}
