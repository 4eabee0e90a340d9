// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handlers.
//
// Handles "jarvis config show|get|set|path" against the dot-notation config
// surface.
package cli

import (
	"fmt"

	"github.com/jeranaias/jarvis-tui/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "show", "":
		return handleConfigShow()
	case "get":
		return handleConfigGet(parser.Positional(1))
	case "set":
		return handleConfigSet(parser.Positional(1), parser.Rest(2))
	case "path":
		return handleConfigPath()
	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Println(k)
		}
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q. Try: show, get, set, path, keys", args.Subcommand)
	}
}

func handleConfigShow() error {
	cfg := config.Global()
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%s = %v\n", labelStyle.Render(key), value)
	}
	return nil
}

func handleConfigGet(key string) error {
	if key == "" {
		return fmt.Errorf("usage: jarvis config get <key>")
	}
	value, err := config.Global().Get(key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func handleConfigSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: jarvis config set <key> <value>")
	}

	cfg := config.Global()
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("%s %s = %s\n", successStyle.Render("[ok]"), key, value)
	return nil
}

func handleConfigPath() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
