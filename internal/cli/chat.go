// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive terminal chat (line-based, no TUI).
//
// Handles "jarvis chat": a readline loop with history and slash commands,
// for terminals where the full TUI is unwanted (ssh, screen readers, dumb
// terminals).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/core"
	"github.com/jeranaias/jarvis-tui/internal/model"
	"github.com/jeranaias/jarvis-tui/internal/sources"
	"github.com/jeranaias/jarvis-tui/internal/stream"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

const chatHelpText = `Commands:
  /new              Start a new chat
  /chats            List chats
  /open <n>         Open chat number n from the list
  /delete <n>       Delete chat number n
  /rename <n> <t>   Rename chat number n to title t
  /sources          Toggle source display
  /help             Show this help
  /quit             Exit`

// historyPath returns the readline history file location.
func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	svcs, err := BuildServices()
	if err != nil {
		return err
	}
	if err := svcs.RequireAuth(); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	if !args.Quiet {
		if u := svcs.Auth.CachedUser(); u != nil {
			Infof("Signed in as %s. %d queries remaining today.", u.Email, u.QueriesRemaining())
		}
		fmt.Println(mutedStyle.Render("Type a question, or /help for commands."))
	}

	showSources := svcs.Cfg.UI.ShowSources
	ctx := context.Background()

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleChatCommand(ctx, svcs, input, &showSources); quit {
				return nil
			}
			continue
		}

		runChatTurn(ctx, svcs.Chat, svcs.Cfg, input, showSources)
	}
}

// handleChatCommand dispatches a slash command. Returns true to exit.
func handleChatCommand(ctx context.Context, svcs *Services, input string, showSources *bool) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true

	case "/help":
		fmt.Println(chatHelpText)

	case "/new":
		svcs.Chat.NewChat()
		Infof("Started a new chat.")

	case "/chats":
		printChatList(svcs.Chat.LoadChats(ctx))

	case "/open":
		if c := chatByNumber(ctx, svcs.Chat, fields); c != nil {
			if _, err := svcs.Chat.OpenChat(ctx, c.ID); err != nil {
				Errorf("%v", err)
				return false
			}
			Infof("Opened %q.", c.Title)
			printTranscriptTail(os.Stdout, svcs.Chat.State())
		}

	case "/delete":
		if c := chatByNumber(ctx, svcs.Chat, fields); c != nil {
			if err := svcs.Chat.DeleteChat(ctx, c.ID); err != nil {
				Errorf("%v", err)
				return false
			}
			Infof("Deleted %q.", c.Title)
		}

	case "/rename":
		if c := chatByNumber(ctx, svcs.Chat, fields); c != nil {
			title := strings.TrimSpace(strings.Join(fields[2:], " "))
			if title == "" {
				Errorf("Usage: /rename <number> <title>")
				return false
			}
			if err := svcs.Chat.RenameChat(ctx, c.ID, title); err != nil {
				Errorf("%v", err)
				return false
			}
			Infof("Renamed to %q.", title)
		}

	case "/sources":
		*showSources = !*showSources
		if *showSources {
			Infof("Sources on.")
		} else {
			Infof("Sources off.")
		}

	default:
		Errorf("Unknown command %s. Try /help.", fields[0])
	}
	return false
}

// runChatTurn sends one question and streams the answer to stdout.
func runChatTurn(ctx context.Context, svc *core.ChatService, cfg *config.Config, text string, showSources bool) {
	var lastSources []sources.Source

	_, err := svc.SendMessage(ctx, text, core.SendCallbacks{
		OnChunk: func(chunk string) {
			fmt.Print(chunk)
		},
		OnSources: func(srcs []sources.Source) {
			lastSources = srcs
		},
		OnStatus: func(message string) {
			fmt.Fprintf(os.Stderr, "%s\n", mutedStyle.Render(message))
		},
	})
	fmt.Println()

	var partialErr *stream.StreamError
	switch {
	case err == nil:

	case errors.As(err, &partialErr):
		Errorf("Stream interrupted; answer may be incomplete.")

	case errors.Is(err, core.ErrMessageTooLong):
		Errorf("Message exceeds %d characters.", cfg.Chat.MaxMessageLength)
		return

	default:
		Errorf("%v", err)
		return
	}

	if showSources && len(lastSources) > 0 {
		fmt.Println(sources.Render(lastSources, false))
	}
}

func printChatList(chats []*model.Chat) {
	if len(chats) == 0 {
		fmt.Println(mutedStyle.Render("No chats."))
		return
	}
	for i, c := range chats {
		ts := ""
		if !c.UpdatedAt.IsZero() {
			ts = mutedStyle.Render("  " + c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("  %2d. %s%s\n", i+1, util.PadCell(c.Title, 44), ts)
	}
}

// printTranscriptTail shows the last few messages of the opened chat, one
// line each, so the user has context before resuming.
func printTranscriptTail(w io.Writer, st *model.State) {
	msgs, ok := st.CurrentTranscript()
	if !ok || len(msgs) == 0 {
		return
	}
	start := len(msgs) - 6
	if start < 0 {
		start = 0
	}
	for _, v := range msgs[start:] {
		role := "you:"
		if v.Role == model.RoleAssistant {
			role = "jarvis:"
		}
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(util.PadCell(role, 8)), v.Preview(70))
	}
}

// chatByNumber resolves "/open 3" style references against the loaded list.
func chatByNumber(ctx context.Context, svc *core.ChatService, fields []string) *model.Chat {
	if len(fields) < 2 {
		Errorf("Usage: %s <number>", fields[0])
		return nil
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		Errorf("Not a chat number: %s", fields[1])
		return nil
	}
	chats := svc.State().Chats()
	if len(chats) == 0 {
		chats = svc.LoadChats(ctx)
	}
	if n > len(chats) {
		Errorf("Only %d chats.", len(chats))
		return nil
	}
	return chats[n-1]
}
