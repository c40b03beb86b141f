// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the chat widget in a terminal.
//
// The panel is a Bubble Tea program wrapped around a widget instance:
// the widget owns the conversation, the configuration snapshot, and
// the state machine; the panel owns presentation only. It mounts the
// widget on startup, relays submitted text, and repaints from the
// widget's display entries after every exchange.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ParisNeo/tinyLollms/internal/render"
	"github.com/ParisNeo/tinyLollms/internal/ui/styles"
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// =============================================================================
// PANEL STATE
// =============================================================================

// State represents the panel state.
type State int

const (
	StateMounting State = iota // Bootstrap fetch in flight
	StateReady                 // Ready for input
	StateWaiting               // A chat request is outstanding
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateMounting:
		return "mounting"
	case StateReady:
		return "ready"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Layout constants used to size the viewport. renderPanel composes the
// same pieces, so these must match what it stacks.
const (
	headerHeight   = 1
	selectorHeight = 1
	inputHeight    = 3 // rounded border top + text + bottom
	statusHeight   = 1
	typingHeight   = 1
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat panel.
type Model struct {
	state  State
	theme  *styles.Theme
	keyMap KeyMap
	width  int
	height int

	widget *widget.Widget
	attrs  widget.Attrs

	// pending holds the submitted text until the exchange completes,
	// so the user turn is visible while the request is in flight.
	pending string
	lastErr error

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	term     *render.TermRenderer
}

// NewModel creates a panel around an unmounted widget. The attributes
// are handed to Mount by Init; style attributes take effect
// immediately so the first frame is already themed.
func NewModel(w *widget.Widget, attrs widget.Attrs) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible animation
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	cfg := widget.ConfigFromAttrs(attrs)
	styles.Override(cfg.Style.PrimaryColor, cfg.Style.BackgroundColor, cfg.Style.PanelWidth)

	return Model{
		state:    StateMounting,
		theme:    styles.NewTheme(),
		keyMap:   DefaultKeyMap(),
		widget:   w,
		attrs:    attrs,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		term:     render.NewTermRenderer(78),
	}
}

// Init starts the cursor blink, the spinner, and the mount.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, mountCmd(m.widget, m.attrs))
}

// NewProgram wraps the panel in a Bubble Tea program with the
// alternate screen enabled. Callers deliver ReconfigureMsg through
// Program.Send when host configuration changes.
func NewProgram(w *widget.Widget, attrs widget.Attrs) *tea.Program {
	return tea.NewProgram(NewModel(w, attrs), tea.WithAltScreen())
}

// State returns the current panel state.
func (m Model) State() State {
	return m.state
}

// Widget returns the hosted widget instance.
func (m Model) Widget() *widget.Widget {
	return m.widget
}

// contentWidth returns the inner width available for text.
func (m Model) contentWidth() int {
	w := styles.Width(m.width) - 2
	if w < 20 {
		w = 20
	}
	return w
}

// chromeHeight returns the rows consumed by everything except the
// viewport in the current state.
func (m Model) chromeHeight() int {
	h := headerHeight + inputHeight + statusHeight
	if m.widget.SelectorVisible() {
		h += selectorHeight
	}
	if m.state == StateWaiting {
		h += typingHeight
	}
	return h
}

// refreshLayout resizes the viewport and input to the current
// terminal dimensions and panel state.
func (m *Model) refreshLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	cw := m.contentWidth()
	m.input.Width = cw - 6
	m.viewport.Width = cw
	vh := m.height - m.chromeHeight()
	if vh < 1 {
		vh = 1
	}
	m.viewport.Height = vh
	m.term = render.NewTermRenderer(cw)
}

// refreshViewport repaints the conversation from the widget's display
// entries and scrolls to the latest turn.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}
