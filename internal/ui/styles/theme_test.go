// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestDetectDark(t *testing.T) {
	if !DetectDark("dark") {
		t.Error("dark setting must force dark")
	}
	if DetectDark("light") {
		t.Error("light setting must force light")
	}
	// "auto" depends on the terminal; just make sure it does not panic.
	_ = DetectDark("auto")
}

func TestNewThemeBuildsStyles(t *testing.T) {
	for _, dark := range []bool{true, false} {
		th := NewTheme(dark)
		if th.IsDark != dark {
			t.Errorf("IsDark = %v, want %v", th.IsDark, dark)
		}
		if th.HeaderTitle.Render("x") == "" {
			t.Error("style renders empty output")
		}
	}
}
