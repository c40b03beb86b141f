// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts untrusted model output into safe display markup.
package render

import (
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// TERMINAL RENDERING
// =============================================================================

// TermRenderer renders assistant markdown for terminal display.
// USABILITY: Markdown rendering with syntax highlighting in the TUI.
type TermRenderer struct {
	inner *glamour.TermRenderer
}

// NewTermRenderer creates a terminal renderer wrapping at the given width.
func NewTermRenderer(wordWrap int) *TermRenderer {
	if wordWrap <= 0 {
		wordWrap = 80
	}

	inner, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		// Degrade to fence highlighting only.
		return &TermRenderer{}
	}
	return &TermRenderer{inner: inner}
}

// Render renders markdown content for terminal display. Returns the
// content with code fences highlighted if full rendering fails.
func (t *TermRenderer) Render(content string) string {
	if t.inner == nil {
		return highlightFences(content)
	}

	rendered, err := t.inner.Render(content)
	if err != nil {
		return highlightFences(content)
	}
	return rendered
}
