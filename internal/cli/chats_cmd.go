// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats_cmd.go - Chat history command handlers.
//
// Handles "jarvis chats list|show|rename|delete" against the backend store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/model"
	"github.com/jeranaias/jarvis-tui/internal/sources"
)

// HandleChats dispatches the chats subcommands.
func HandleChats(args Args) error {
	svcs, err := BuildServices()
	if err != nil {
		return err
	}
	if err := svcs.RequireAuth(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	parser := NewArgParser(args.Raw)
	switch args.Subcommand {
	case "list", "":
		return handleChatsList(ctx, svcs, args)
	case "show":
		return handleChatsShow(ctx, svcs, parser, args)
	case "rename":
		return handleChatsRename(ctx, svcs, parser)
	case "delete":
		return handleChatsDelete(ctx, svcs, parser)
	default:
		return fmt.Errorf("unknown chats subcommand %q. Try: list, show, rename, delete", args.Subcommand)
	}
}

func handleChatsList(ctx context.Context, svcs *Services, args Args) error {
	chats := svcs.Chat.LoadChats(ctx)

	if args.JSON {
		type entry struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			UpdatedAt string `json:"updated_at,omitempty"`
		}
		out := make([]entry, 0, len(chats))
		for _, c := range chats {
			e := entry{ID: c.ID, Title: c.Title}
			if !c.UpdatedAt.IsZero() {
				e.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
			}
			out = append(out, e)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(chats) == 0 {
		fmt.Println(mutedStyle.Render("No chats."))
		return nil
	}
	for _, c := range chats {
		ts := ""
		if !c.UpdatedAt.IsZero() {
			ts = "  " + mutedStyle.Render(c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("%s  %s%s\n", mutedStyle.Render(c.ID), c.Title, ts)
	}
	return nil
}

func handleChatsShow(ctx context.Context, svcs *Services, parser *ArgParser, args Args) error {
	chatID := parser.Positional(1)
	if chatID == "" {
		return fmt.Errorf("usage: jarvis chats show <id>")
	}

	svcs.Chat.LoadChats(ctx)
	chat, err := svcs.Chat.OpenChat(ctx, chatID)
	if err != nil {
		return err
	}

	fmt.Println(labelStyle.Render(chat.Title))
	fmt.Println()
	for _, m := range chat.Messages {
		role := "You"
		style := infoStyle
		if m.Role == model.RoleAssistant {
			role = "Jarvis"
			style = successStyle
		}
		fmt.Println(style.Render(role + ":"))
		fmt.Println(m.Content)
		if m.Role == model.RoleAssistant && len(m.Sources) > 0 && !args.Quiet {
			fmt.Println(sources.Render(m.Sources, false))
		}
		fmt.Println()
	}
	return nil
}

func handleChatsRename(ctx context.Context, svcs *Services, parser *ArgParser) error {
	chatID := parser.Positional(1)
	title := parser.Rest(2)
	if chatID == "" || title == "" {
		return fmt.Errorf("usage: jarvis chats rename <id> <title>")
	}

	svcs.Chat.LoadChats(ctx)
	if err := svcs.Chat.RenameChat(ctx, chatID, title); err != nil {
		return err
	}
	fmt.Printf("%s Renamed to %q.\n", successStyle.Render("[ok]"), title)
	return nil
}

func handleChatsDelete(ctx context.Context, svcs *Services, parser *ArgParser) error {
	chatID := parser.Positional(1)
	if chatID == "" {
		return fmt.Errorf("usage: jarvis chats delete <id>")
	}

	svcs.Chat.LoadChats(ctx)
	if err := svcs.Chat.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	fmt.Printf("%s Deleted.\n", successStyle.Render("[ok]"))
	return nil
}
