// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL == "" {
		t.Error("default api.base_url is empty")
	}
	if cfg.Search.K != 20 {
		t.Errorf("default search.k = %d, want 20", cfg.Search.K)
	}
	if cfg.Search.Alpha != 0.3 {
		t.Errorf("default search.alpha = %g, want 0.3", cfg.Search.Alpha)
	}
	if !cfg.Search.DetailedResponse {
		t.Error("default search.detailed_response = false, want true")
	}
	if cfg.Chat.MaxTitleWords != 5 {
		t.Errorf("default chat.max_title_words = %d, want 5", cfg.Chat.MaxTitleWords)
	}
	if cfg.Chat.TitleMaxChars != 50 {
		t.Errorf("default chat.title_max_chars = %d, want 50", cfg.Chat.TitleMaxChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"k too small", func(c *Config) { c.Search.K = 2 }, true},
		{"k too large", func(c *Config) { c.Search.K = 100 }, true},
		{"alpha negative", func(c *Config) { c.Search.Alpha = -0.1 }, true},
		{"alpha above one", func(c *Config) { c.Search.Alpha = 1.5 }, true},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"negative timeout", func(c *Config) { c.API.TimeoutSecs = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFillDefaults(t *testing.T) {
	cfg := &Config{}
	if err := fillDefaults(cfg); err != nil {
		t.Fatalf("fillDefaults: %v", err)
	}

	defaults := Default()
	if cfg.API.BaseURL != defaults.API.BaseURL {
		t.Errorf("base_url = %q, want %q", cfg.API.BaseURL, defaults.API.BaseURL)
	}
	if cfg.Search.K != defaults.Search.K {
		t.Errorf("k = %d, want %d", cfg.Search.K, defaults.Search.K)
	}
	if cfg.GitHub.DefaultOrg != defaults.GitHub.DefaultOrg {
		t.Errorf("default_org = %q, want %q", cfg.GitHub.DefaultOrg, defaults.GitHub.DefaultOrg)
	}
}

func TestFillDefaultsKeepsExisting(t *testing.T) {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.Search.K = 10

	if err := fillDefaults(cfg); err != nil {
		t.Fatalf("fillDefaults: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url overwritten: %q", cfg.API.BaseURL)
	}
	if cfg.Search.K != 10 {
		t.Errorf("k overwritten: %d", cfg.Search.K)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("JARVIS_API_URL", "http://localhost:9999/")
	t.Setenv("JARVIS_SEARCH_K", "12")
	t.Setenv("JARVIS_GITHUB_ORG", "acme")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://localhost:9999" {
		t.Errorf("base_url = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.Search.K != 12 {
		t.Errorf("k = %d, want 12", cfg.Search.K)
	}
	if cfg.GitHub.DefaultOrg != "acme" {
		t.Errorf("default_org = %q, want acme", cfg.GitHub.DefaultOrg)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("search.k", "15"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := cfg.Get("search.k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(int) != 15 {
		t.Errorf("search.k = %v, want 15", v)
	}

	if err := cfg.Set("github.default_branch", "develop"); err != nil {
		t.Fatalf("Set string: %v", err)
	}
	if cfg.GitHub.DefaultBranch != "develop" {
		t.Errorf("default_branch = %q", cfg.GitHub.DefaultBranch)
	}

	if err := cfg.Set("search.detailed_response", "false"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if cfg.Search.DetailedResponse {
		t.Error("detailed_response still true")
	}

	if _, err := cfg.Get("nonsense.key"); err == nil {
		t.Error("Get unknown key succeeded")
	}
	if err := cfg.Set("nonsense.key", "x"); err == nil {
		t.Error("Set unknown key succeeded")
	}
}

func TestSaveLoadTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Search.K = 25
	cfg.GitHub.DefaultOrg = "roundtrip-org"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	loaded := Default()
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatalf("LoadTOML: %v", err)
	}
	if loaded.Search.K != 25 {
		t.Errorf("loaded k = %d, want 25", loaded.Search.K)
	}
	if loaded.GitHub.DefaultOrg != "roundtrip-org" {
		t.Errorf("loaded org = %q", loaded.GitHub.DefaultOrg)
	}
}

func TestLoadJSONPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"search":{"k":7,"alpha":0.9}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	if err := LoadJSON(cfg, path); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if cfg.Search.K != 7 || cfg.Search.Alpha != 0.9 {
		t.Errorf("search = %+v", cfg.Search)
	}
	// Missing sections fall back to defaults.
	if cfg.API.BaseURL == "" {
		t.Error("api.base_url not defaulted")
	}
}

func TestGlobalReset(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global() // trigger the one-time load before overriding

	custom := Default()
	custom.Search.K = 9
	SetGlobal(custom)

	if Global().Search.K != 9 {
		t.Errorf("Global().Search.K = %d, want 9", Global().Search.K)
	}
}
