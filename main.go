// jarvis - terminal client for codebase Q&A.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/cli"
	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI(args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdAuth:
		err = cli.HandleAuth(args)
	case cli.CmdChats:
		err = cli.HandleChats(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) error {
	svcs, err := cli.BuildServices()
	if err != nil {
		return err
	}
	if err := svcs.RequireAuth(); err != nil {
		return err
	}

	m := chat.New(svcs.Chat, svcs.Cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Runner().SetProgram(p)

	// Pick up config edits made in another terminal while the TUI is open.
	if w, werr := config.NewWatcher(500*time.Millisecond, func(cfg *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Cfg: cfg})
	}); werr == nil {
		if werr = w.Watch(); werr == nil {
			defer w.Close()
		}
	}

	_, err = p.Run()
	return err
}
