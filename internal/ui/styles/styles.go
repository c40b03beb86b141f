// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chat panel.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark
// detection. The host-overridable knobs are the named variables
// PrimaryColor, BackgroundColor, and PanelWidth; Override rebinds them
// from host configuration, and every Theme built afterwards picks up
// the new values.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// NAMED STYLE VARIABLES
// =============================================================================

// PrimaryColor - accent color for the header, user turns, and selections
var PrimaryColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// BackgroundColor - panel background
var BackgroundColor = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// PanelWidth - chat panel width in columns. 0 means use the full terminal width.
var PanelWidth = 0

// =============================================================================
// SUPPORTING PALETTE
// =============================================================================

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - hints, timestamps, status line
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - text on the accent background
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// Rose - error text and the fallback turn
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Overlay - borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#45475A"}

// Emerald - ready indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Override rebinds the named style variables from host values. Empty
// color strings and a non-positive width leave the current values in
// place, so partial host configuration works.
func Override(primary, background string, width int) {
	if primary != "" {
		PrimaryColor = lipgloss.AdaptiveColor{Light: primary, Dark: primary}
	}
	if background != "" {
		BackgroundColor = lipgloss.AdaptiveColor{Light: background, Dark: background}
	}
	if width > 0 {
		PanelWidth = width
	}
}

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the chat panel. It captures
// the terminal's color capability at construction time.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Panel chrome
	Header    lipgloss.Style
	Launcher  lipgloss.Style
	Selector  lipgloss.Style
	Selected  lipgloss.Style
	StatusBar lipgloss.Style
	ErrorText lipgloss.Style

	// Conversation turns
	UserTurn       lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantTurn  lipgloss.Style
	AssistantLabel lipgloss.Style
	WelcomeTurn    lipgloss.Style
	FallbackTurn   lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	Typing         lipgloss.Style

	// Status line fragments
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	StateReady   lipgloss.Style
	StateWaiting lipgloss.Style
}

// NewTheme builds a theme from the current named variables.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(PrimaryColor).
		Padding(0, 1)

	t.Launcher = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(PrimaryColor).
		Padding(0, 2)

	t.Selector = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Selected = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BackgroundColor)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Background(BackgroundColor)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	t.UserTurn = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.AssistantTurn = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)

	t.WelcomeTurn = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.FallbackTurn = lipgloss.NewStyle().
		Foreground(Rose).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.Typing = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StateReady = lipgloss.NewStyle().
		Foreground(Emerald)

	t.StateWaiting = lipgloss.NewStyle().
		Foreground(TextMuted)

	return t
}

// Width returns the effective panel width for a terminal of the given
// total width: PanelWidth when set and smaller than the terminal,
// otherwise the terminal width.
func Width(terminalWidth int) int {
	if PanelWidth > 0 && PanelWidth < terminalWidth {
		return PanelWidth
	}
	return terminalWidth
}
