// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotAuthenticated indicates no usable token is stored.
	ErrNotAuthenticated = errors.New("not authenticated, run 'jarvis auth login'")

	// ErrSessionExpired indicates the backend rejected the stored token.
	// The token has already been evicted when this is returned.
	ErrSessionExpired = errors.New("session expired, run 'jarvis auth login'")

	// ErrInvalidToken indicates a token that fails the local validity check.
	ErrInvalidToken = errors.New("token is malformed or expired")

	// ErrQueryLimit indicates the local query throttle is exhausted.
	ErrQueryLimit = errors.New("query limit reached, wait for the quota to reset")
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service issues authenticated requests and owns the login/logout lifecycle.
//
// A 401 or 403 from the backend evicts the stored token and fires the
// session-expired hook once. Requests are never retried here.
type Service struct {
	baseURL     string
	store       *TokenStore
	profilePath string
	httpClient  *http.Client
	logger      *log.Logger

	onSessionExpired func()

	mu           sync.Mutex
	expiredFired bool
	user         *User
	limiter      *rate.Limiter
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithTimeout sets the request timeout for non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.httpClient.Timeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSessionExpiredHook registers a callback fired once when the backend
// rejects the stored token.
func WithSessionExpiredHook(fn func()) Option {
	return func(s *Service) { s.onSessionExpired = fn }
}

// WithProfilePath overrides the cached profile location.
func WithProfilePath(path string) Option {
	return func(s *Service) { s.profilePath = path }
}

// NewService creates an auth service against the given backend base URL.
func NewService(baseURL string, store *TokenStore, opts ...Option) *Service {
	s := &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.New(io.Discard, "", 0),
	}
	if path, err := DefaultProfilePath(); err == nil {
		s.profilePath = path
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseURL returns the configured backend base URL.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// TokenStore exposes the underlying store.
func (s *Service) TokenStore() *TokenStore {
	return s.store
}

// IsAuthenticated reports whether a locally valid token is stored.
func (s *Service) IsAuthenticated() bool {
	_, ok := s.store.Token()
	return ok
}

// =============================================================================
// AUTHENTICATED REQUESTS
// =============================================================================

// AuthenticatedDo issues an HTTP request with the stored bearer token merged
// into the headers. The Authorization header is only attached when a locally
// valid token exists; the request still goes out without it otherwise and the
// backend decides. Content-Type defaults to application/json unless the
// caller set one.
func (s *Service) AuthenticatedDo(ctx context.Context, method, requestURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := s.store.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	s.logger.Printf("auth: %s %s", method, requestURL)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		s.expireSession()
		return nil, ErrSessionExpired
	}

	return resp, nil
}

// InvalidateSession evicts the token and cached profile as if the backend
// had rejected a request here. For callers that observe a 401 outside
// AuthenticatedDo, such as the stream transports.
func (s *Service) InvalidateSession() {
	s.expireSession()
}

// expireSession evicts the token and cached profile, then fires the
// session-expired hook. The hook fires at most once per expiry; a successful
// login re-arms it.
func (s *Service) expireSession() {
	if err := s.store.Clear(); err != nil {
		s.logger.Printf("auth: failed to clear token: %v", err)
	}
	if s.profilePath != "" {
		ClearProfile(s.profilePath)
	}

	s.mu.Lock()
	fire := !s.expiredFired
	s.expiredFired = true
	s.user = nil
	s.limiter = nil
	s.mu.Unlock()

	if fire && s.onSessionExpired != nil {
		s.onSessionExpired()
	}
}

// =============================================================================
// LOGIN FLOW
// =============================================================================

// InitiateGoogleLogin asks the backend for the Google OAuth URL the user
// should open in a browser.
func (s *Service) InitiateGoogleLogin(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/google/login", nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: "login initiation failed"}
	}

	var payload struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.AuthURL == "" {
		return "", errors.New("backend returned no auth_url")
	}
	return payload.AuthURL, nil
}

// ExtractRedirectToken pulls the token out of a pasted OAuth redirect URL.
// Returns the token and the URL with the token and error parameters removed.
func ExtractRedirectToken(rawURL string) (token string, cleaned string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse redirect URL: %w", err)
	}

	q := u.Query()
	if msg := q.Get("error"); msg != "" {
		return "", "", fmt.Errorf("login failed: %s", msg)
	}
	token = q.Get("token")
	if token == "" {
		return "", "", errors.New("redirect URL carries no token")
	}

	q.Del("token")
	q.Del("error")
	u.RawQuery = q.Encode()
	return token, u.String(), nil
}

// Login validates and persists a token, then fetches the user profile.
// A persisted token is rolled back when the profile fetch fails.
func (s *Service) Login(ctx context.Context, token string) (*User, error) {
	if !IsTokenValid(token) {
		return nil, ErrInvalidToken
	}
	if err := s.store.Save(token); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	s.mu.Lock()
	s.expiredFired = false
	s.mu.Unlock()

	user, err := s.FetchUserInfo(ctx)
	if err != nil {
		s.store.Clear()
		return nil, err
	}

	s.logger.Printf("auth: logged in as %s (token %s)", user.Email, fingerprint(token))
	return user, nil
}

// Logout removes the token and cached profile.
func (s *Service) Logout() error {
	if s.profilePath != "" {
		ClearProfile(s.profilePath)
	}
	s.mu.Lock()
	s.user = nil
	s.limiter = nil
	s.mu.Unlock()
	return s.store.Clear()
}

// FetchUserInfo retrieves the user profile from the backend and caches it.
func (s *Service) FetchUserInfo(ctx context.Context) (*User, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	resp, err := s.AuthenticatedDo(ctx, http.MethodGet, s.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: "failed to fetch user info"}
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	if s.profilePath != "" {
		if err := SaveProfile(s.profilePath, &user); err != nil {
			s.logger.Printf("auth: failed to cache profile: %v", err)
		}
	}

	s.mu.Lock()
	s.user = &user
	s.limiter = limiterFor(&user)
	s.mu.Unlock()

	return &user, nil
}

// CachedUser returns the last fetched profile, falling back to the on-disk
// cache. Returns nil when neither exists.
func (s *Service) CachedUser() *User {
	s.mu.Lock()
	u := s.user
	s.mu.Unlock()
	if u != nil {
		return u
	}
	if s.profilePath != "" {
		return LoadProfile(s.profilePath)
	}
	return nil
}

// =============================================================================
// QUERY THROTTLE
// =============================================================================

// limiterFor builds a client-side throttle from the user's quota. The backend
// enforces the real limit; this keeps a misbehaving client from burning the
// whole quota in seconds.
func limiterFor(u *User) *rate.Limiter {
	limit := u.Settings.QueryLimit
	if limit <= 0 {
		return nil
	}
	burst := u.QueriesRemaining()
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(limit)), burst)
}

// AllowQuery reports whether the local throttle permits another query.
// Always true before a profile has been fetched.
func (s *Service) AllowQuery() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

// fingerprint renders a token safely for logs.
func fingerprint(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
