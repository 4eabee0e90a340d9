// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// UserSettings carries the per-user query quota as reported by the backend.
type UserSettings struct {
	QueryLimit  int    `json:"query_limit"`
	QueriesUsed int    `json:"queries_used"`
	ResetDate   string `json:"reset_date"`
}

// User is the authenticated user profile. It is only ever replaced wholesale
// by a fresh fetch from the backend, never mutated field by field.
type User struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Picture   string       `json:"picture,omitempty"`
	Settings  UserSettings `json:"settings"`
	CreatedAt string       `json:"created_at"`
	LastLogin string       `json:"last_login,omitempty"`
}

// QueriesRemaining returns how many queries are left in the current window.
func (u *User) QueriesRemaining() int {
	r := u.Settings.QueryLimit - u.Settings.QueriesUsed
	if r < 0 {
		return 0
	}
	return r
}

// DefaultProfilePath returns the cached profile location under the config dir.
func DefaultProfilePath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// SaveProfile caches the user profile beside the token.
func SaveProfile(path string, u *User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0600)
}

// LoadProfile reads a cached user profile. Returns nil when absent or unreadable.
func LoadProfile(path string) *User {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}

// ClearProfile removes the cached profile.
func ClearProfile(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
