// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sources

import (
	"strings"
	"testing"

	"github.com/jeranaias/jarvis-tui/internal/stream"
)

var testGitHub = GitHub{
	BaseURL:       "https://github.com",
	DefaultOrg:    "Orange-Health",
	DefaultBranch: "main",
}

func TestBuildFileURL(t *testing.T) {
	tests := []struct {
		name string
		repo string
		path string
		want string
	}{
		{"missing repo", "", "src/x.ts", PlaceholderURL},
		{"missing path", "org/repo", "", PlaceholderURL},
		{"both missing", "", "", PlaceholderURL},
		{
			"repo with owner",
			"acme/backend",
			"src/auth.py",
			"https://github.com/acme/backend/blob/main/src/auth.py",
		},
		{
			"bare repo gets default org",
			"myrepo",
			"a/b.py",
			"https://github.com/Orange-Health/myrepo/blob/main/a/b.py",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testGitHub.BuildFileURL(tt.repo, tt.path); got != tt.want {
				t.Errorf("BuildFileURL(%q, %q) = %q, want %q", tt.repo, tt.path, got, tt.want)
			}
		})
	}
}

func TestTransform(t *testing.T) {
	raw := []stream.RawSource{
		{RepoName: "acme/backend", Path: "src/auth.py", Preview: "def login():", Language: "python", FileType: "py", RelevanceScore: 0.91},
		{Path: "lib/util.go"},
		{},
	}

	out := Transform(raw, testGitHub)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}

	if out[0].ID != "source-0" || out[1].ID != "source-1" || out[2].ID != "source-2" {
		t.Errorf("ids = %s, %s, %s", out[0].ID, out[1].ID, out[2].ID)
	}
	if out[0].Title != "acme/backend/src/auth.py" {
		t.Errorf("title = %q", out[0].Title)
	}
	if out[0].Description != "def login():" {
		t.Errorf("description = %q", out[0].Description)
	}
	if out[0].RelevanceScore != 0.91 {
		t.Errorf("score = %g", out[0].RelevanceScore)
	}

	// Path-only record: bare path title, placeholder URL.
	if out[1].Title != "lib/util.go" {
		t.Errorf("title = %q", out[1].Title)
	}
	if out[1].URL != PlaceholderURL {
		t.Errorf("url = %q", out[1].URL)
	}
	if out[1].Description != "No description available" {
		t.Errorf("description = %q", out[1].Description)
	}

	// Fully empty record.
	if out[2].Title != "Unknown File" {
		t.Errorf("title = %q", out[2].Title)
	}
	if out[2].URL != PlaceholderURL {
		t.Errorf("url = %q", out[2].URL)
	}
}

func TestTransformEmpty(t *testing.T) {
	out := Transform(nil, testGitHub)
	if out == nil || len(out) != 0 {
		t.Errorf("out = %#v, want empty non-nil slice", out)
	}
}

func TestTestAndConfigDetection(t *testing.T) {
	tests := []struct {
		path       string
		wantTest   bool
		wantConfig bool
	}{
		{"internal/auth/token_test.go", true, false},
		{"src/components/Chat.spec.tsx", true, false},
		{"config/app.config.ts", false, true},
		{"deploy/values.yaml", false, true},
		{"src/main.go", false, false},
	}
	for _, tt := range tests {
		out := Transform([]stream.RawSource{{RepoName: "r", Path: tt.path}}, testGitHub)
		if out[0].IsTest != tt.wantTest {
			t.Errorf("%s: IsTest = %v", tt.path, out[0].IsTest)
		}
		if out[0].IsConfig != tt.wantConfig {
			t.Errorf("%s: IsConfig = %v", tt.path, out[0].IsConfig)
		}
	}
}

func TestRender(t *testing.T) {
	srcs := Transform([]stream.RawSource{
		{RepoName: "acme/backend", Path: "src/auth.py", Preview: "def login(): pass", Language: "python", RelevanceScore: 0.8},
	}, testGitHub)

	out := Render(srcs, true)
	if !strings.Contains(out, "Sources (1)") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "acme/backend/src/auth.py") {
		t.Errorf("missing title: %q", out)
	}
	if !strings.Contains(out, "blob/main/src/auth.py") {
		t.Errorf("missing url: %q", out)
	}

	if Render(nil, true) != "" {
		t.Error("Render(nil) should be empty")
	}
}

func TestHighlightFallsBackToPlain(t *testing.T) {
	code := "not really code"
	out := Highlight(code, "nosuchlanguage")
	if out == "" {
		t.Error("highlight returned empty string")
	}
}
