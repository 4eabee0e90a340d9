// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Handles "jarvis ask" which streams one answer to stdout without touching
// chat history. Markdown is rendered when stdout is a TTY; piped output
// stays plain so it composes with other tools.
//
// Examples:
//   jarvis ask "how does the auth middleware validate requests"
//   jarvis ask --json "where is the retry logic" | jq .answer
//   cat question.txt | jarvis ask
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/jarvis-tui/internal/sources"
	"github.com/jeranaias/jarvis-tui/internal/stream"
)

// askJSONOutput is the --json response shape.
type askJSONOutput struct {
	Answer  string           `json:"answer"`
	Sources []sources.Source `json:"sources,omitempty"`
	Partial bool             `json:"partial,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// HandleAsk runs a one-shot question.
func HandleAsk(args Args) error {
	// "--no-sources" takes no value, so it is stripped before the remaining
	// words are joined into the question.
	raw, noSources := stripBoolFlag(args.Raw, "--no-sources")
	args.Raw = raw

	question := questionFromArgs(args)
	if question == "" {
		return errors.New("no question provided. Usage: jarvis ask \"your question\"")
	}

	svcs, err := BuildServices()
	if err != nil {
		return err
	}
	if err := svcs.RequireAuth(); err != nil {
		return err
	}
	if !svcs.Auth.AllowQuery() {
		return errors.New("daily query limit reached")
	}

	showSources := !noSources && svcs.Cfg.UI.ShowSources

	useMarkdown := IsStdoutTTY() && !args.JSON
	var answer strings.Builder
	var srcs []sources.Source

	streamURL := svcs.Client.StreamURL(question, svcs.Cfg.Search.K, svcs.Cfg.Search.Alpha)
	streamErr := svcs.Consumer.Ask(context.Background(), streamURL, stream.Callbacks{
		OnChunk: func(chunk string) {
			answer.WriteString(chunk)
			if !args.JSON && !useMarkdown {
				fmt.Print(chunk)
			}
		},
		OnSources: func(raw []stream.RawSource) {
			srcs = sources.Transform(raw, sources.GitHub{
				BaseURL:       svcs.Cfg.GitHub.BaseURL,
				DefaultOrg:    svcs.Cfg.GitHub.DefaultOrg,
				DefaultBranch: svcs.Cfg.GitHub.DefaultBranch,
			})
		},
		OnStatus: func(message string) {
			if !args.Quiet && !args.JSON {
				fmt.Fprintf(os.Stderr, "%s\n", mutedStyle.Render(message))
			}
		},
	})

	var partialErr *stream.StreamError
	partial := errors.As(streamErr, &partialErr)

	if args.JSON {
		out := askJSONOutput{Answer: answer.String(), Partial: partial}
		if showSources {
			out.Sources = srcs
		}
		if streamErr != nil {
			out.Error = streamErr.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if streamErr != nil && !partial {
			os.Exit(1)
		}
		return nil
	}

	if streamErr != nil && !partial {
		return errors.New(stream.ConnectionErrorMessage(svcs.Cfg.API.BaseURL))
	}

	if useMarkdown {
		fmt.Print(renderMarkdown(answer.String()))
	}
	fmt.Println()

	if partial {
		Errorf("Stream interrupted; answer may be incomplete.")
	}
	if showSources && len(srcs) > 0 {
		fmt.Println(sources.Render(srcs, args.Verbose))
	}
	return nil
}

// stripBoolFlag removes a value-less flag from raw args.
func stripBoolFlag(raw []string, flag string) ([]string, bool) {
	out := make([]string, 0, len(raw))
	found := false
	for _, a := range raw {
		if a == flag {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}

// questionFromArgs pulls the question from positional args or piped stdin.
func questionFromArgs(args Args) string {
	if q := strings.TrimSpace(strings.Join(args.Raw, " ")); q != "" {
		return q
	}
	if IsStdinTTY() {
		return ""
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw text on any failure.
func renderMarkdown(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
