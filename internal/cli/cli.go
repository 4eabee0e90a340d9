// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for jarvis.
package cli

import (
	"fmt"
	"os"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdAuth
	CmdChats
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after the command word
	Raw []string
}

const usageText = `jarvis - terminal client for codebase Q&A

Jarvis answers questions about your organization's codebases, streaming
answers with source file references.

Usage:
  jarvis                       Start the TUI (default)
  jarvis ask "question"        Ask a single question
  jarvis chat                  Interactive chat in the terminal
  jarvis auth login            Sign in with Google
  jarvis auth logout           Sign out and clear credentials
  jarvis auth status           Show authentication status
  jarvis chats list            List saved chats
  jarvis chats show <id>       Show a chat transcript
  jarvis chats rename <id> <title>
  jarvis chats delete <id>
  jarvis config show           Show configuration
  jarvis config get <key>      Get a config value
  jarvis config set <key> <value>
  jarvis version               Show version
  jarvis help                  Show this help

Flags:
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output
  --json             JSON output where supported
  --no-sources       Hide source references (ask)

Examples:
  jarvis ask "how does the auth middleware validate requests"
  jarvis ask --json "where is the payment retry logic" | jq .answer
  jarvis chats list
  jarvis config set search.k 25
`

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	args := Args{}

	// Strip global flags wherever they appear.
	rest := make([]string, 0, len(raw))
	for _, a := range raw {
		switch a {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		default:
			rest = append(rest, a)
		}
	}

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := rest[0]
	args.Raw = rest[1:]
	if len(args.Raw) > 0 {
		args.Subcommand = args.Raw[0]
	}

	switch cmd {
	case "ask":
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "auth", "login":
		if cmd == "login" {
			args.Subcommand = "login"
		}
		return CmdAuth, args
	case "chats":
		return CmdChats, args
	case "config":
		return CmdConfig, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		// Bare words are treated as a question for convenience.
		args.Raw = rest
		return CmdAsk, args
	}
}

// PrintUsage writes the top-level help text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes build information.
func PrintVersion() {
	fmt.Printf("jarvis %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
