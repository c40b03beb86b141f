// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts untrusted model output into safe display markup.
package render

import (
	"bytes"
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// HTML PIPELINE
// =============================================================================

// codeLangRe matches the class goldmark puts on fenced code blocks, so
// an external highlighter can pick the language up downstream.
var codeLangRe = regexp.MustCompile(`^language-[a-zA-Z0-9+#-]+$`)

// Pipeline is the markdown-to-safe-HTML transformation.
//
// SECURITY: Sanitization is the load-bearing guarantee here, not the
// markdown parser. Raw HTML is allowed through goldmark precisely so
// that bluemonday sees everything the model produced; the policy then
// strips scripts, event handlers, and dangerous URLs for all inputs.
// Output never contains executable content.
type Pipeline struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewPipeline creates the canonical rendering pipeline.
func NewPipeline() *Pipeline {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			// Single newlines become hard breaks, chat style.
			ghtml.WithHardWraps(),
			ghtml.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(codeLangRe).OnElements("code")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Pipeline{md: md, policy: policy}
}

// Render converts raw text to sanitized HTML. Pure and deterministic:
// the same input always yields the same output, and no input can make
// it fail. A parser error degrades to the escaped literal text.
func (p *Pipeline) Render(raw string) string {
	// Normalize so visually identical submissions render identically.
	src := norm.NFC.String(raw)

	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return EscapeText(raw)
	}
	return p.policy.Sanitize(buf.String())
}

// =============================================================================
// LITERAL TEXT PATH
// =============================================================================

// EscapeText is the display path for user-authored content. User text
// is never run through the markdown pipeline; it is shown exactly as
// typed, entity-escaped so it can carry no markup at all.
func EscapeText(raw string) string {
	return html.EscapeString(norm.NFC.String(raw))
}

// =============================================================================
// PACKAGE-LEVEL DEFAULT
// =============================================================================

var defaultPipeline = NewPipeline()

// Render converts raw text to sanitized HTML using the default pipeline.
func Render(raw string) string {
	return defaultPipeline.Render(raw)
}
