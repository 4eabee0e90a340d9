// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/jarvis-tui/internal/util"
)

const (
	previewMaxLines = 8
	titleMaxWidth   = 48
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	urlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Render formats a source list for terminal display, with syntax-highlighted
// previews when color output is available.
func Render(srcs []Source, withPreviews bool) string {
	if len(srcs) == 0 {
		return ""
	}

	color := termenv.DefaultOutput().Profile != termenv.Ascii

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Sources (%d)", len(srcs))))
	b.WriteString("\n")

	for i, s := range srcs {
		b.WriteString(fmt.Sprintf("  %2d. %s", i+1, titleStyle.Render(util.TruncateRunes(s.Title, titleMaxWidth))))
		if s.RelevanceScore > 0 {
			b.WriteString("  " + scoreStyle.Render(fmt.Sprintf("%.0f%%", s.RelevanceScore*100)))
		}
		if tag := sourceTag(s); tag != "" {
			b.WriteString("  " + tagStyle.Render(tag))
		}
		b.WriteString("\n")

		if s.URL != PlaceholderURL {
			b.WriteString("      " + urlStyle.Render(s.URL) + "\n")
		}

		if withPreviews && s.Description != "" && s.Description != "No description available" {
			preview := trimPreview(s.Description)
			if color {
				preview = Highlight(preview, s.Language)
			}
			for _, line := range strings.Split(preview, "\n") {
				b.WriteString("      " + line + "\n")
			}
		}
	}
	return b.String()
}

func sourceTag(s Source) string {
	switch {
	case s.IsTest:
		return "[test]"
	case s.IsConfig:
		return "[config]"
	default:
		return ""
	}
}

func trimPreview(preview string) string {
	lines := strings.Split(strings.TrimRight(preview, "\n"), "\n")
	if len(lines) > previewMaxLines {
		lines = append(lines[:previewMaxLines], "...")
	}
	return strings.Join(lines, "\n")
}

// Highlight applies ANSI syntax highlighting to a code snippet. Falls back
// to the plain text on any failure.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
