// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared service wiring and output styling for the CLI.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/api"
	"github.com/jeranaias/jarvis-tui/internal/auth"
	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/core"
	"github.com/jeranaias/jarvis-tui/internal/model"
	"github.com/jeranaias/jarvis-tui/internal/stream"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// Errorf prints an error line to stderr.
func Errorf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errStyle.Render("[!]"), fmt.Sprintf(format, a...))
}

// Infof prints an informational line to stderr.
func Infof(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", infoStyle.Render("[+]"), fmt.Sprintf(format, a...))
}

// =============================================================================
// SERVICE WIRING
// =============================================================================

// Services bundles everything a command handler needs.
type Services struct {
	Cfg      *config.Config
	Auth     *auth.Service
	Client   *api.Client
	Consumer *stream.Consumer
	Chat     *core.ChatService
}

// BuildServices wires the full service stack from the global config.
func BuildServices() (*Services, error) {
	cfg := config.Global()

	tokenPath, err := auth.DefaultTokenPath()
	if err != nil {
		return nil, fmt.Errorf("resolve token path: %w", err)
	}
	store := auth.NewTokenStore(tokenPath)

	authSvc := auth.NewService(cfg.API.BaseURL, store,
		auth.WithTimeout(time.Duration(cfg.API.TimeoutSecs)*time.Second),
		auth.WithSessionExpiredHook(func() {
			Errorf("Session expired. Run: jarvis auth login")
		}),
	)

	client := api.NewClient(cfg.API.BaseURL, authSvc)
	consumer := stream.NewConsumer(store,
		stream.WithFallbackTimeout(time.Duration(cfg.API.FallbackTimeoutSecs)*time.Second),
		stream.WithUnauthorizedHook(authSvc.InvalidateSession))
	chatSvc := core.NewChatService(model.NewState(), client, consumer, authSvc, cfg)

	return &Services{
		Cfg:      cfg,
		Auth:     authSvc,
		Client:   client,
		Consumer: consumer,
		Chat:     chatSvc,
	}, nil
}

// RequireAuth fails with guidance when no valid session exists.
func (s *Services) RequireAuth() error {
	if !s.Auth.IsAuthenticated() {
		return fmt.Errorf("not signed in. Run: jarvis auth login")
	}
	return nil
}
