// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui hosts the chat widget in a terminal.
//
// This file defines all Bubble Tea message types used by the panel.
// Messages are organized into the following categories:
//   - Lifecycle: mount completion and teardown
//   - Exchange: submit completion (reply or failure)
//   - Configuration: live host attribute changes
//
// All message types follow Bubble Tea conventions and are immutable.
package ui

import (
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// =============================================================================
// LIFECYCLE MESSAGES
// =============================================================================

// MountedMsg signals that the bootstrap fetch has finished and the
// widget holds its final mount-time configuration. Err carries mount
// refusals only; a failed bootstrap fetch is not an error, the widget
// keeps its locally configured values.
type MountedMsg struct {
	Err error
}

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// ReplyMsg delivers the outcome of one submitted turn. On failure Err
// is set and the widget has already recorded the fallback line; the
// panel only needs to repaint.
type ReplyMsg struct {
	Reply string
	Err   error
}

// =============================================================================
// CONFIGURATION MESSAGES
// =============================================================================

// ReconfigureMsg carries new host attributes into the mounted widget.
// Sent from outside the program (config file watcher) via Program.Send.
type ReconfigureMsg struct {
	Attrs widget.Attrs
}
