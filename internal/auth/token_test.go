// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeJWT builds an unsigned but structurally valid JWT with the given exp.
func makeJWT(t *testing.T, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"sub": "user-1", "exp": exp})
	require.NoError(t, err)
	return fmt.Sprintf("%s.%s.%s", header, base64.RawURLEncoding.EncodeToString(payload), "sig")
}

func TestIsTokenValid(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid future exp", makeJWT(t, future), true},
		{"expired", makeJWT(t, past), false},
		{"empty", "", false},
		{"two segments", "abc.def", false},
		{"four segments", "a.b.c.d", false},
		{"payload not base64", "head.!!!not-base64!!!.sig", false},
		{"payload not json", "head." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".sig", false},
		{"missing exp", "head." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u"}`)) + ".sig", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTokenValid(tt.token))
		})
	}
}

func TestIsTokenValidPaddedPayload(t *testing.T) {
	// Padded base64url must also decode.
	payload := base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, time.Now().Add(time.Hour).Unix())))
	assert.True(t, IsTokenValid("head."+payload+".sig"))
}

func TestTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(path)

	tok := makeJWT(t, time.Now().Add(time.Hour).Unix())
	require.NoError(t, store.Save(tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, tok, got)

	got, ok = store.Token()
	require.True(t, ok)
	assert.Equal(t, tok, got)

	require.NoError(t, store.Clear())
	_, ok = store.Load()
	assert.False(t, ok)

	// Clearing an already empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestTokenStoreMissingFile(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "nope.json"))
	_, ok := store.Load()
	assert.False(t, ok)
	_, ok = store.Token()
	assert.False(t, ok)
}

func TestTokenStoreMaxAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(path)

	// Write a record stamped beyond the max age.
	rec := storedToken{
		Token:   makeJWT(t, time.Now().Add(time.Hour).Unix()),
		SavedAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, ok := store.Load()
	assert.False(t, ok, "stale record should be treated as absent")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "stale record should be removed")
}

func TestTokenStoreExpiredJWT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(path)

	require.NoError(t, store.Save(makeJWT(t, time.Now().Add(-time.Minute).Unix())))

	// Load returns the raw record, Token applies the validity check.
	_, ok := store.Load()
	assert.True(t, ok)
	_, ok = store.Token()
	assert.False(t, ok)
}

func TestTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := NewTokenStore(path)
	_, ok := store.Load()
	assert.False(t, ok)
}
