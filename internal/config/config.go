// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for jarvis.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.jarvis/config.toml
//   - ~/.jarvis/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete jarvis configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend API configuration
	API APIConfig `toml:"api" json:"api"`

	// Retrieval parameters for /ask/stream
	Search SearchConfig `toml:"search" json:"search"`

	// GitHub link construction for source records
	GitHub GitHubConfig `toml:"github" json:"github"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains backend connection configuration.
type APIConfig struct {
	// BaseURL is the Jarvis backend base URL (no trailing slash)
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the request timeout for non-streaming calls in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// FallbackTimeoutSecs is the self-termination timeout for the fallback
	// stream transport in seconds
	FallbackTimeoutSecs int `toml:"fallback_timeout_secs" json:"fallback_timeout_secs"`
}

// SearchConfig contains retrieval parameters sent with every query.
type SearchConfig struct {
	// K is the number of candidate chunks to retrieve (5-30)
	K int `toml:"k" json:"k"`
	// Alpha balances semantic vs keyword retrieval (0.0-1.0)
	Alpha float64 `toml:"alpha" json:"alpha"`
	// DetailedResponse requests long-form answers from the backend
	DetailedResponse bool `toml:"detailed_response" json:"detailed_response"`
}

// GitHubConfig controls how source records are turned into repository links.
type GitHubConfig struct {
	// BaseURL is the GitHub host (no trailing slash)
	BaseURL string `toml:"base_url" json:"base_url"`
	// DefaultOrg is prepended when a repo name carries no owner
	DefaultOrg string `toml:"default_org" json:"default_org"`
	// DefaultBranch is used in blob URLs
	DefaultBranch string `toml:"default_branch" json:"default_branch"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// MaxTitleWords is how many leading words of the first user message
	// become the chat title
	MaxTitleWords int `toml:"max_title_words" json:"max_title_words"`
	// TitleMaxChars caps the derived title length before the ellipsis
	TitleMaxChars int `toml:"title_max_chars" json:"title_max_chars"`
	// ListLimit is the default page size for chat listings
	ListLimit int `toml:"list_limit" json:"list_limit"`
	// MaxMessageLength rejects oversized input before it hits the backend
	MaxMessageLength int `toml:"max_message_length" json:"max_message_length"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the render width for markdown output (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowSources renders the source panel after each answer
	ShowSources bool `toml:"show_sources" json:"show_sources"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:             "https://jarvis.orangehealth.dev",
			TimeoutSecs:         30,
			FallbackTimeoutSecs: 30,
		},

		Search: SearchConfig{
			K:                20,
			Alpha:            0.3,
			DetailedResponse: true,
		},

		GitHub: GitHubConfig{
			BaseURL:       "https://github.com",
			DefaultOrg:    "Orange-Health",
			DefaultBranch: "main",
		},

		Chat: ChatConfig{
			MaxTitleWords:    5,
			TitleMaxChars:    50,
			ListLimit:        50,
			MaxMessageLength: 4000,
		},

		UI: UIConfig{
			Theme:       "auto",
			WordWrap:    0,
			ShowSources: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jarvis configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jarvis"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 since the token path lives beside them.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Apply environment overrides to defaults
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.FallbackTimeoutSecs == 0 {
		cfg.API.FallbackTimeoutSecs = defaults.API.FallbackTimeoutSecs
	}

	if cfg.Search.K == 0 {
		cfg.Search.K = defaults.Search.K
	}
	if cfg.Search.Alpha == 0 {
		cfg.Search.Alpha = defaults.Search.Alpha
	}

	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = defaults.GitHub.BaseURL
	}
	if cfg.GitHub.DefaultOrg == "" {
		cfg.GitHub.DefaultOrg = defaults.GitHub.DefaultOrg
	}
	if cfg.GitHub.DefaultBranch == "" {
		cfg.GitHub.DefaultBranch = defaults.GitHub.DefaultBranch
	}

	if cfg.Chat.MaxTitleWords == 0 {
		cfg.Chat.MaxTitleWords = defaults.Chat.MaxTitleWords
	}
	if cfg.Chat.TitleMaxChars == 0 {
		cfg.Chat.TitleMaxChars = defaults.Chat.TitleMaxChars
	}
	if cfg.Chat.ListLimit == 0 {
		cfg.Chat.ListLimit = defaults.Chat.ListLimit
	}
	if cfg.Chat.MaxMessageLength == 0 {
		cfg.Chat.MaxMessageLength = defaults.Chat.MaxMessageLength
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# jarvis configuration file\n")
	buf.WriteString("# Generated by jarvis - edit with care\n")
	buf.WriteString("\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.API.FallbackTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.fallback_timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Search.K < 5 || c.Search.K > 30 {
		errs = append(errs, ValidationError{
			Field:   "search.k",
			Message: fmt.Sprintf("must be 5-30, got %d", c.Search.K),
		})
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		errs = append(errs, ValidationError{
			Field:   "search.alpha",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Search.Alpha),
		})
	}

	if c.GitHub.BaseURL != "" {
		u, err := url.Parse(c.GitHub.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "github.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.GitHub.BaseURL),
			})
		}
	}

	if c.Chat.MaxTitleWords < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_title_words",
			Message: "must be at least 1",
		})
	}
	if c.Chat.TitleMaxChars < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.title_max_chars",
			Message: "must be at least 1",
		})
	}
	if c.Chat.ListLimit < 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.list_limit",
			Message: "must be at least 1",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	fillDefaults(c)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - JARVIS_API_URL: overrides api.base_url
//   - JARVIS_SEARCH_K: overrides search.k
//   - JARVIS_SEARCH_ALPHA: overrides search.alpha
//   - JARVIS_GITHUB_ORG: overrides github.default_org
//   - JARVIS_GITHUB_BRANCH: overrides github.default_branch
//   - JARVIS_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("JARVIS_API_URL"); v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("JARVIS_SEARCH_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			c.Search.K = k
		}
	}
	if v := os.Getenv("JARVIS_SEARCH_ALPHA"); v != "" {
		if alpha, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Alpha = alpha
		}
	}
	if v := os.Getenv("JARVIS_GITHUB_ORG"); v != "" {
		c.GitHub.DefaultOrg = v
	}
	if v := os.Getenv("JARVIS_GITHUB_BRANCH"); v != "" {
		c.GitHub.DefaultBranch = v
	}
	if v := os.Getenv("JARVIS_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "search.k").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "search.k").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.timeout_secs",
		"api.fallback_timeout_secs",
		"search.k",
		"search.alpha",
		"search.detailed_response",
		"github.base_url",
		"github.default_org",
		"github.default_branch",
		"chat.max_title_words",
		"chat.title_max_chars",
		"chat.list_limit",
		"chat.max_message_length",
		"ui.theme",
		"ui.word_wrap",
		"ui.show_sources",
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
