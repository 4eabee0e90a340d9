// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Authentication command handlers.
//
// Handles "jarvis auth login|logout|status". Login is the OAuth redirect
// dance without a local callback server: the sign-in URL is printed, the
// user completes it in a browser and pastes the redirect URL (or the bare
// token) back into the terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/auth"
)

// HandleAuth dispatches the auth subcommands.
func HandleAuth(args Args) error {
	svcs, err := BuildServices()
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "login", "":
		return handleLogin(svcs)
	case "logout":
		return handleLogout(svcs)
	case "status":
		return handleAuthStatus(svcs)
	default:
		return fmt.Errorf("unknown auth subcommand %q. Try: login, logout, status", args.Subcommand)
	}
}

func handleLogin(svcs *Services) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authURL, err := svcs.Auth.InitiateGoogleLogin(ctx)
	if err != nil {
		return fmt.Errorf("could not reach the sign-in endpoint: %w", err)
	}

	fmt.Println(labelStyle.Render("Sign in with Google:"))
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()
	fmt.Println(mutedStyle.Render("After signing in, the browser lands on a URL containing your token."))
	fmt.Println(mutedStyle.Render("Paste that full URL (or just the token) below."))
	fmt.Println()

	pasted, err := ReadSecret("Redirect URL or token: ")
	if err != nil {
		return err
	}
	if pasted == "" {
		return errors.New("nothing pasted; aborting")
	}

	token := pasted
	if strings.Contains(pasted, "://") || strings.Contains(pasted, "?") {
		extracted, _, err := auth.ExtractRedirectToken(pasted)
		if err != nil {
			return err
		}
		token = extracted
	}

	loginCtx, loginCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer loginCancel()

	user, err := svcs.Auth.Login(loginCtx, token)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("%s Signed in as %s (%s)\n", successStyle.Render("[ok]"), user.Name, user.Email)
	fmt.Printf("   %d of %d queries remaining today.\n", user.QueriesRemaining(), user.Settings.QueryLimit)
	return nil
}

func handleLogout(svcs *Services) error {
	if err := svcs.Auth.Logout(); err != nil {
		return err
	}
	fmt.Printf("%s Signed out.\n", successStyle.Render("[ok]"))
	return nil
}

func handleAuthStatus(svcs *Services) error {
	if !svcs.Auth.IsAuthenticated() {
		fmt.Println(warnStyle.Render("Not signed in.") + " Run: jarvis auth login")
		return nil
	}

	fmt.Printf("%s Signed in.\n", successStyle.Render("[ok]"))

	// Prefer fresh profile data; fall back to the cached copy offline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := svcs.Auth.FetchUserInfo(ctx)
	if err != nil {
		user = svcs.Auth.CachedUser()
		if user == nil {
			fmt.Println(mutedStyle.Render("Profile unavailable (offline?)."))
			return nil
		}
		fmt.Println(mutedStyle.Render("Using cached profile (backend unreachable)."))
	}

	fmt.Printf("  %s %s (%s)\n", labelStyle.Render("User:"), user.Name, user.Email)
	fmt.Printf("  %s %d of %d remaining today\n", labelStyle.Render("Queries:"),
		user.QueriesRemaining(), user.Settings.QueryLimit)
	if user.Settings.ResetDate != "" {
		fmt.Printf("  %s %s\n", labelStyle.Render("Resets:"), user.Settings.ResetDate)
	}
	return nil
}
