// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the bearer token, the cached user profile, and
// authenticated requests against the Jarvis backend.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// TokenMaxAge is how long a stored token is honored regardless of its own
// expiry claim.
const TokenMaxAge = 7 * 24 * time.Hour

// storedToken is the on-disk token record.
type storedToken struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// TokenStore persists the bearer token on disk with owner-only permissions.
type TokenStore struct {
	path   string
	maxAge time.Duration
	mu     sync.Mutex
}

// DefaultTokenPath returns the standard token location under the config dir.
func DefaultTokenPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token.json"), nil
}

// NewTokenStore creates a token store backed by the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, maxAge: TokenMaxAge}
}

// Save persists the token with the current timestamp.
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedToken{Token: token, SavedAt: time.Now()})
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0600)
}

// Load returns the raw stored token. The second return is false when no
// token is stored or the stored record has outlived its max age.
func (s *TokenStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	var rec storedToken
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false
	}
	if rec.Token == "" {
		return "", false
	}
	if !rec.SavedAt.IsZero() && time.Since(rec.SavedAt) > s.maxAge {
		os.Remove(s.path)
		return "", false
	}
	return rec.Token, true
}

// Token returns the stored token only if it passes the local validity check.
func (s *TokenStore) Token() (string, bool) {
	tok, ok := s.Load()
	if !ok || !IsTokenValid(tok) {
		return "", false
	}
	return tok, true
}

// Clear removes the stored token.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsTokenValid reports whether token looks like an unexpired JWT.
//
// Purely local: the middle base64url segment is decoded, parsed as JSON, and
// its exp claim (epoch seconds) compared against the current time. Any
// malformed input fails closed. No signature verification happens here; the
// backend remains the authority on token acceptance.
func IsTokenValid(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad their segments.
		payload, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return false
		}
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false
	}

	return time.Unix(claims.Exp, 0).After(time.Now())
}
