// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the widget's two-call gateway protocol.
//
// The protocol has exactly two operations:
//
//   - FetchBootstrapInfo: GET /api/app_info/{app_key}, issued once on
//     mount. Best-effort; a failure means "no bootstrap data" and the
//     widget runs on its locally configured defaults.
//
//   - SendChat: POST /api/chat carrying the app key, the model id, and
//     the entire conversation history. Returns the assistant reply
//     text or a typed *ChatError.
//
// The package performs no retries, no backoff, and enforces no
// deadline of its own; callers pass a context and the injected
// http.Client's transport settings apply. This keeps the failure
// behavior of one user action exactly one network attempt.
package transport
