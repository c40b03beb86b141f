// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the chat widget in a terminal.
//
// This file contains the rendering logic for the panel: the closed
// launcher, the open panel layout, and the conversation entries.
// Assistant and welcome turns go through the terminal markdown
// renderer; user turns are shown exactly as typed.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ParisNeo/tinyLollms/internal/ui/styles"
	"github.com/ParisNeo/tinyLollms/internal/util"
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the panel. Layout when open: header + [selector] +
// messages viewport + [typing line] + input + status. The viewport
// height is pre-calculated in refreshLayout from the same constants.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if !m.widget.IsOpen() {
		return m.renderLauncher()
	}
	return m.renderPanel()
}

// renderLauncher renders the closed state: a launcher bubble and the
// shortcut hint, nothing else. The conversation is retained behind it.
func (m Model) renderLauncher() string {
	cfg := m.widget.Config()
	bubble := m.theme.Launcher.Render(cfg.Title)
	hint := m.theme.StatusBar.Render(
		m.theme.ShortcutKey.Render("C-o") + m.theme.ShortcutDesc.Render(" open chat") +
			"  " +
			m.theme.ShortcutKey.Render("Esc/C-c") + m.theme.ShortcutDesc.Render(" quit"))

	filler := m.height - lipgloss.Height(bubble) - lipgloss.Height(hint)
	if filler < 1 {
		filler = 1
	}
	return bubble + strings.Repeat("\n", filler) + hint
}

// renderPanel renders the open chat panel.
func (m Model) renderPanel() string {
	parts := []string{m.renderHeader()}
	if m.widget.SelectorVisible() {
		parts = append(parts, m.renderSelector())
	}
	parts = append(parts, m.viewport.View())
	if m.state == StateWaiting {
		parts = append(parts, m.renderTyping())
	}
	parts = append(parts, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// PANEL COMPONENTS
// =============================================================================

// renderHeader renders the title bar across the panel width.
func (m Model) renderHeader() string {
	cfg := m.widget.Config()
	title := util.TruncateWidth(cfg.Title, styles.Width(m.width)-2)
	return m.theme.Header.Width(styles.Width(m.width)).Render(title)
}

// renderSelector renders the model list with the selection bracketed.
func (m Model) renderSelector() string {
	cfg := m.widget.Config()
	items := make([]string, 0, len(cfg.AllowedModels))
	for _, id := range cfg.AllowedModels {
		if id == cfg.SelectedModel {
			items = append(items, m.theme.Selected.Render("["+id+"]"))
		} else {
			items = append(items, m.theme.Selector.Render(id))
		}
	}
	return m.theme.Selector.Render("model:") + " " + strings.Join(items, "  ")
}

// renderTyping renders the in-flight indicator line.
func (m Model) renderTyping() string {
	cfg := m.widget.Config()
	return m.spinner.View() + " " + m.theme.Typing.Render(cfg.AssistantName+" is typing")
}

// renderInput renders the bordered input area.
func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.contentWidth()).Render(m.input.View())
}

// renderStatusBar renders the bottom line: last error if any,
// otherwise panel state plus the short help.
func (m Model) renderStatusBar() string {
	if m.lastErr != nil {
		line := "error: " + m.lastErr.Error()
		return m.theme.ErrorText.Render(util.TruncateWidth(line, styles.Width(m.width)))
	}

	var state string
	switch m.state {
	case StateMounting:
		state = m.theme.StateWaiting.Render("connecting")
	case StateWaiting:
		state = m.theme.StateWaiting.Render("waiting")
	default:
		state = m.theme.StateReady.Render("ready")
	}

	parts := make([]string, 0, 4)
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return state + "  " + strings.Join(parts, "  ")
}

// =============================================================================
// ENTRY RENDERING
// =============================================================================

// renderEntries builds the viewport content from the widget's display
// entries plus the pending user turn, separated by blank lines.
func (m Model) renderEntries() string {
	cfg := m.widget.Config()
	cw := m.contentWidth()

	var b strings.Builder
	for i, e := range m.widget.Entries() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e, cfg, cw))
		b.WriteString("\n")
	}
	if m.pending != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderUserTurn(m.pending, cw))
		b.WriteString("\n")
	}
	return b.String()
}

// renderEntry renders one conversation entry for the terminal.
func (m Model) renderEntry(e widget.Entry, cfg widget.Config, cw int) string {
	switch e.Kind {
	case widget.EntryUser:
		return m.renderUserTurn(e.Raw, cw)
	case widget.EntryAssistant:
		body := strings.TrimRight(m.term.Render(e.Raw), "\n")
		return m.theme.AssistantLabel.Render(cfg.AssistantName) + "\n" + body
	case widget.EntryWelcome:
		return m.theme.WelcomeTurn.Width(cw).Render(e.Raw)
	case widget.EntryFallback:
		return m.theme.FallbackTurn.Width(cw).Render(e.Raw)
	}
	return ""
}

// renderUserTurn shows user text exactly as typed, wrapped to width.
func (m Model) renderUserTurn(text string, cw int) string {
	return m.theme.UserLabel.Render("You") + "\n" + m.theme.UserTurn.Width(cw).Render(text)
}
