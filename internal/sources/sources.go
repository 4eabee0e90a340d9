// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sources turns raw stream source records into displayable source
// references with repository links.
package sources

import (
	"fmt"
	"strings"

	"github.com/jeranaias/jarvis-tui/internal/stream"
)

// PlaceholderURL marks a source that cannot be linked.
const PlaceholderURL = "#"

// unknownFileTitle is shown when a record carries neither repo nor path.
const unknownFileTitle = "Unknown File"

// Source is a displayable reference to a file the answer drew from. The JSON
// shape matches what the backend stores in assistant message metadata.
type Source struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Description    string  `json:"description,omitempty"`
	Language       string  `json:"language,omitempty"`
	FileType       string  `json:"file_type,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
	IsTest         bool    `json:"is_test,omitempty"`
	IsConfig       bool    `json:"is_config,omitempty"`
}

// GitHub carries the link-construction settings.
type GitHub struct {
	BaseURL       string
	DefaultOrg    string
	DefaultBranch string
}

// BuildFileURL constructs the repository link for a source record.
//
// Records missing either the repo name or the path get the non-navigable
// placeholder. A repo name already containing an owner ("org/repo") is used
// as-is; a bare name is prefixed with the default organization.
func (g GitHub) BuildFileURL(repoName, path string) string {
	if repoName == "" || path == "" {
		return PlaceholderURL
	}
	if strings.Contains(repoName, "/") {
		return fmt.Sprintf("%s/%s/blob/%s/%s", g.BaseURL, repoName, g.DefaultBranch, path)
	}
	return fmt.Sprintf("%s/%s/%s/blob/%s/%s", g.BaseURL, g.DefaultOrg, repoName, g.DefaultBranch, path)
}

// Transform converts raw stream records 1:1 into Source values with
// synthesized sequential ids. The result replaces any prior source set
// wholesale; callers must never merge.
func Transform(raw []stream.RawSource, gh GitHub) []Source {
	out := make([]Source, 0, len(raw))
	for i, r := range raw {
		out = append(out, Source{
			ID:             fmt.Sprintf("source-%d", i),
			Title:          displayTitle(r),
			URL:            gh.BuildFileURL(r.RepoName, r.Path),
			Description:    description(r),
			Language:       r.Language,
			FileType:       r.FileType,
			RelevanceScore: r.RelevanceScore,
			IsTest:         looksLikeTest(r.Path),
			IsConfig:       looksLikeConfig(r.Path),
		})
	}
	return out
}

func displayTitle(r stream.RawSource) string {
	switch {
	case r.RepoName != "" && r.Path != "":
		return r.RepoName + "/" + r.Path
	case r.Path != "":
		return r.Path
	default:
		return unknownFileTitle
	}
}

func description(r stream.RawSource) string {
	if r.Preview != "" {
		return r.Preview
	}
	return "No description available"
}

func looksLikeTest(path string) bool {
	base := strings.ToLower(path)
	return strings.Contains(base, "_test.") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.Contains(base, "/tests/") ||
		strings.HasPrefix(base, "tests/")
}

func looksLikeConfig(path string) bool {
	base := strings.ToLower(path)
	for _, suffix := range []string{".toml", ".yaml", ".yml", ".ini", ".env", ".json", ".conf"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return strings.Contains(base, "config")
}
