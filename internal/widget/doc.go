// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget implements the embeddable chat widget core.
//
// A Widget composes the conversation log (internal/model), the render
// pipeline (internal/render), and the gateway protocol client
// (internal/transport) behind a small capability surface:
//
//	w := widget.New(transport.NewClient(baseURL))
//	w.Mount(ctx, widget.Attrs{"app-key": "demo-key", "model": "phi3"})
//	reply, err := w.HandleSubmit(ctx, "Hello")
//	w.Teardown()
//
// The state machine has two states, Idle and AwaitingResponse, plus an
// orthogonal open/closed panel flag. Empty submissions are no-ops,
// submissions while awaiting are ignored, failed sends display a
// fallback line without polluting the history, and no failure path
// ever escapes to the host. Platform embedding (terminal UI, HTTP
// demo page) lives outside this package; hosts adapt the widget, the
// widget never knows its host.
package widget
