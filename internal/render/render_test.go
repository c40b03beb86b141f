// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts untrusted model output into safe display markup.
package render

import (
	"strings"
	"testing"
)

// =============================================================================
// MARKDOWN STRUCTURE TESTS
// =============================================================================

func TestPipeline_MarkdownStructure(t *testing.T) {
	p := NewPipeline()

	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "heading",
			input:    "# Title",
			contains: []string{"<h1", "Title", "</h1>"},
		},
		{
			name:     "emphasis",
			input:    "some **bold** and *italic* text",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>"},
		},
		{
			name:     "unordered list",
			input:    "- one\n- two",
			contains: []string{"<ul>", "<li>one</li>", "<li>two</li>"},
		},
		{
			name:     "code span",
			input:    "run `go vet` first",
			contains: []string{"<code>go vet</code>"},
		},
		{
			name:     "single newline becomes break",
			input:    "first line\nsecond line",
			contains: []string{"<br"},
		},
		{
			name:     "fenced block keeps language class",
			input:    "```go\npackage main\n```",
			contains: []string{"language-go"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Render(tc.input)
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Render(%q) = %q, want to contain %q", tc.input, got, want)
				}
			}
		})
	}
}

// =============================================================================
// SANITIZATION TESTS
// =============================================================================

func TestPipeline_StripsExecutableContent(t *testing.T) {
	p := NewPipeline()

	tests := []struct {
		name    string
		input   string
		banned  []string
	}{
		{
			name:   "script element",
			input:  "hello <script>alert(1)</script> world",
			banned: []string{"<script", "alert(1)"},
		},
		{
			name:   "script inside markdown",
			input:  "# Hi\n\n<script src=\"https://evil.example/x.js\"></script>",
			banned: []string{"<script", "evil.example"},
		},
		{
			name:   "event handler attribute",
			input:  `<img src="x" onerror="alert(1)">`,
			banned: []string{"onerror"},
		},
		{
			name:   "javascript url",
			input:  `<a href="javascript:alert(1)">click</a>`,
			banned: []string{"javascript:"},
		},
		{
			name:   "iframe",
			input:  `<iframe src="https://evil.example"></iframe>`,
			banned: []string{"<iframe"},
		},
		{
			name:   "inline style",
			input:  `<div style="background:url(javascript:alert(1))">x</div>`,
			banned: []string{"style="},
		},
		{
			name:   "form and inputs",
			input:  `<form action="/steal"><input name="pw"></form>`,
			banned: []string{"<form", "<input"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Render(tc.input)
			for _, bad := range tc.banned {
				if strings.Contains(got, bad) {
					t.Errorf("Render(%q) = %q, must not contain %q", tc.input, got, bad)
				}
			}
		})
	}
}

func TestPipeline_ScriptInsideCodeFenceStaysInert(t *testing.T) {
	p := NewPipeline()

	// Inside a fence the tag is data, not markup; it must come out
	// entity-escaped, never as a live element.
	got := p.Render("```html\n<script>alert(1)</script>\n```")
	if strings.Contains(got, "<script") {
		t.Errorf("fenced script leaked as live markup: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("fenced script should be visible as escaped text: %q", got)
	}
}

// =============================================================================
// DETERMINISM TESTS
// =============================================================================

func TestPipeline_RenderIsDeterministic(t *testing.T) {
	p := NewPipeline()

	inputs := []string{
		"# Heading\n\nSome **text** with `code`.",
		"<script>alert(1)</script>",
		"- a\n- b\n- c",
		"plain text, nothing special",
	}

	for _, input := range inputs {
		first := p.Render(input)
		second := p.Render(input)
		if first != second {
			t.Errorf("Render(%q) not deterministic:\n first = %q\nsecond = %q", input, first, second)
		}
	}
}

func TestPipeline_NormalizesEquivalentUnicode(t *testing.T) {
	p := NewPipeline()

	// Precomposed vs combining-mark spellings of the same text must
	// render identically.
	precomposed := "café"
	combining := "café"

	if got, want := p.Render(combining), p.Render(precomposed); got != want {
		t.Errorf("NFC normalization missing: %q != %q", got, want)
	}
}

// =============================================================================
// LITERAL TEXT TESTS
// =============================================================================

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "tags escaped", input: "<b>hi</b>", want: "&lt;b&gt;hi&lt;/b&gt;"},
		{name: "script escaped", input: "<script>x</script>", want: "&lt;script&gt;x&lt;/script&gt;"},
		{name: "markdown left alone", input: "**not bold**", want: "**not bold**"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EscapeText(tc.input); got != tc.want {
				t.Errorf("EscapeText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// =============================================================================
// TERMINAL RENDERING TESTS
// =============================================================================

func TestTermRenderer_NeverReturnsEmpty(t *testing.T) {
	r := NewTermRenderer(80)

	got := r.Render("# Hello\n\nSome `code` here.")
	if strings.TrimSpace(got) == "" {
		t.Error("terminal render of non-empty markdown should not be empty")
	}
}

func TestHighlight_FallsBackToPlainText(t *testing.T) {
	code := "definitely not valid in any language \x00"
	got := Highlight(code, "nosuchlanguage")
	if got == "" {
		t.Error("Highlight should never return empty output for non-empty code")
	}
}

func TestHighlightFences_ProseUntouched(t *testing.T) {
	text := "before\n```go\npackage main\n```\nafter"
	got := highlightFences(text)

	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("prose around fences should survive: %q", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers should be consumed: %q", got)
	}
}
