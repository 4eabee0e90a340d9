// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jeranaias/jarvis-tui/internal/model"
)

func parseArgs(t *testing.T, argv ...string) (Command, Args) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"jarvis"}, argv...)
	defer func() { os.Args = old }()
	return Parse()
}

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, _ := parseArgs(t)
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want CmdTUI", cmd)
	}
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"ask", "how does it work"}, CmdAsk},
		{[]string{"chat"}, CmdChat},
		{[]string{"auth", "login"}, CmdAuth},
		{[]string{"login"}, CmdAuth},
		{[]string{"chats", "list"}, CmdChats},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
	}
	for _, tt := range tests {
		cmd, _ := parseArgs(t, tt.argv...)
		if cmd != tt.want {
			t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
	}
}

func TestParseBareWordsBecomeQuestion(t *testing.T) {
	cmd, args := parseArgs(t, "where", "is", "the", "login", "handler")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if len(args.Raw) != 5 {
		t.Errorf("Raw = %v", args.Raw)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parseArgs(t, "--json", "chats", "list", "-q")
	if cmd != CmdChats {
		t.Fatalf("cmd = %v", cmd)
	}
	if !args.JSON || !args.Quiet {
		t.Errorf("flags = %+v", args)
	}
	if args.Subcommand != "list" {
		t.Errorf("subcommand = %q", args.Subcommand)
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"show", "--lines", "50", "--since=2024-01-01", "--confirm", "extra"})

	if p.Subcommand() != "show" {
		t.Errorf("subcommand = %q", p.Subcommand())
	}
	if p.Flag("lines") != "50" {
		t.Errorf("lines = %q", p.Flag("lines"))
	}
	if p.Flag("since") != "2024-01-01" {
		t.Errorf("since = %q", p.Flag("since"))
	}
	if p.Positional(1) != "extra" {
		t.Errorf("positional = %q", p.Positional(1))
	}
}

func TestArgParserBoolTrailing(t *testing.T) {
	p := NewArgParser([]string{"list", "--json"})
	if !p.BoolFlag("json") {
		t.Error("trailing flag should be boolean")
	}
}

func TestArgParserRest(t *testing.T) {
	p := NewArgParser([]string{"rename", "chat-1", "My", "new", "title"})
	if got := p.Rest(2); got != "My new title" {
		t.Errorf("Rest = %q", got)
	}
	if p.Rest(10) != "" {
		t.Error("out-of-range Rest should be empty")
	}
}

func TestPrintTranscriptTail(t *testing.T) {
	st := model.NewState()
	c := model.NewLocalChat("u1")
	st.AddChat(c)
	for i := 0; i < 8; i++ {
		if _, err := st.AppendUserMessage(c.ID, fmt.Sprintf("question %d with\na newline", i)); err != nil {
			t.Fatalf("AppendUserMessage: %v", err)
		}
	}

	var buf bytes.Buffer
	printTranscriptTail(&buf, st)
	out := buf.String()

	if got := strings.Count(out, "\n"); got != 6 {
		t.Errorf("lines = %d, want last 6 messages", got)
	}
	if !strings.Contains(out, "question 7 with a newline") {
		t.Errorf("newest message missing or newline kept: %q", out)
	}
	if strings.Contains(out, "question 1 with") {
		t.Errorf("older messages should be trimmed: %q", out)
	}
}

func TestStripBoolFlag(t *testing.T) {
	raw, found := stripBoolFlag([]string{"--no-sources", "what", "is", "this"}, "--no-sources")
	if !found {
		t.Error("flag not found")
	}
	if len(raw) != 3 {
		t.Errorf("raw = %v", raw)
	}

	raw, found = stripBoolFlag([]string{"plain", "question"}, "--no-sources")
	if found || len(raw) != 2 {
		t.Errorf("raw = %v, found = %v", raw, found)
	}
}
