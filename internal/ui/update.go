// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the chat widget in a terminal.
package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ParisNeo/tinyLollms/internal/ui/styles"
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// mountTimeout bounds the bootstrap fetch. The widget keeps its
// locally configured values when the gateway cannot be reached in time.
const mountTimeout = 10 * time.Second

// mountCmd creates a command that mounts the widget with the given
// host attributes.
func mountCmd(w *widget.Widget, attrs widget.Attrs) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mountTimeout)
		defer cancel()
		return MountedMsg{Err: w.Mount(ctx, attrs)}
	}
}

// submitCmd creates a command that runs one turn through the widget.
// The transport client owns the request timeout.
func submitCmd(w *widget.Widget, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := w.HandleSubmit(context.Background(), text)
		return ReplyMsg{Reply: reply, Err: err}
	}
}

// ignorableSubmitErr reports errors that are signals, not failures:
// nothing to display, nothing to log.
func ignorableSubmitErr(err error) bool {
	return errors.Is(err, widget.ErrEmptySubmission) ||
		errors.Is(err, widget.ErrBusy) ||
		errors.Is(err, widget.ErrTornDown)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all Bubble Tea messages for the panel.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshLayout()
		m.refreshViewport()
		return m, nil

	case MountedMsg:
		m.state = StateReady
		if msg.Err != nil && !errors.Is(msg.Err, widget.ErrTornDown) {
			m.lastErr = msg.Err
		}
		// Bootstrap may have replaced the welcome text and model list.
		cfg := m.widget.Config()
		styles.Override(cfg.Style.PrimaryColor, cfg.Style.BackgroundColor, cfg.Style.PanelWidth)
		m.theme = styles.NewTheme()
		m.refreshLayout()
		m.refreshViewport()
		return m, nil

	case ReplyMsg:
		m.state = StateReady
		m.pending = ""
		if msg.Err != nil && !ignorableSubmitErr(msg.Err) {
			m.lastErr = msg.Err
		}
		m.refreshLayout()
		m.refreshViewport()
		return m, nil

	case ReconfigureMsg:
		m.widget.Reconfigure(msg.Attrs)
		cfg := m.widget.Config()
		styles.Override(cfg.Style.PrimaryColor, cfg.Style.BackgroundColor, cfg.Style.PanelWidth)
		m.theme = styles.NewTheme()
		m.refreshLayout()
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.state == StateReady {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes key presses between panel actions, the viewport,
// and the text input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		// Teardown first so an in-flight response is discarded, not applied.
		m.widget.Teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.TogglePanel):
		m.widget.ToggleOpen()
		m.refreshLayout()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.CycleModel):
		m.cycleModel()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.Up),
		key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp),
		key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.widget.IsOpen() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit starts one exchange from the input field. Submits are
// ignored while a request is outstanding; the widget enforces the
// same rule, this just keeps the panel honest.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state != StateReady || !m.widget.IsOpen() {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.state = StateWaiting
	m.pending = text
	m.lastErr = nil
	m.input.Reset()
	m.refreshLayout()
	m.refreshViewport()
	return m, tea.Batch(m.spinner.Tick, submitCmd(m.widget, text))
}

// cycleModel advances the model selector to the next allowed model.
func (m Model) cycleModel() {
	if !m.widget.SelectorVisible() {
		return
	}
	cfg := m.widget.Config()
	models := cfg.AllowedModels
	next := models[0]
	for i, id := range models {
		if id == cfg.SelectedModel {
			next = models[(i+1)%len(models)]
			break
		}
	}
	_ = m.widget.SelectModel(next)
}
