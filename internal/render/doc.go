// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts untrusted model output into safe display markup.
//
// Two display paths exist and they are deliberately not interchangeable:
//
//   - Pipeline.Render: assistant-originated text. Markdown becomes
//     structural HTML (headings, lists, emphasis, code, hard line
//     breaks), then bluemonday strips anything executable. For every
//     input, the output carries no script content, no event handlers,
//     and no dangerous URLs.
//
//   - EscapeText: user-authored text. Displayed literally, never parsed
//     as markup, so a user cannot inject content into their own page.
//
// For terminals, TermRenderer wraps glamour with a chroma fence
// highlighter as the degraded path. Rendering is pure and idempotent
// with respect to input: equal inputs produce equal output.
package render
