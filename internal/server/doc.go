// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the gateway HTTP surface the chat widget
// talks to.
//
// The gateway sits between embedded widgets and the configured LLM
// backends. Widgets authenticate with an application key; the gateway
// looks the key up in the registry, enforces the per-application model
// allowlist, and relays the conversation to the application's binding.
//
// # Endpoints
//
//   - GET    /api/app_info/{app_key}  - Widget bootstrap info
//   - POST   /api/chat                - Relay a conversation upstream
//   - POST   /api/admin/login         - Admin JWT issuance
//   - GET    /api/admin/apps          - List registered applications
//   - POST   /api/admin/apps          - Register an application
//   - PUT    /api/admin/apps/{key}    - Update an application
//   - DELETE /api/admin/apps/{key}    - Remove an application
//   - GET    /health                  - Health check
//   - GET    /stats                   - Usage statistics
//   - GET    /demo, /                 - Embedded demo page
//
// # Security Features
//
//   - Admin API behind short-lived HS256 bearer tokens
//   - Per-client rate limiting with spoof-resistant IP extraction
//   - Request body size caps and message role validation
//   - CORS open to arbitrary origins, as embeds require
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//   - ServerStats: request counters exposed on /stats
//
// # Usage
//
//	srv := server.NewServer(":8002").
//		WithStore(st).
//		WithAuthenticator(a).
//		WithLogger(logger)
//	if err := srv.Start(); err != nil {
//		logger.Fatal("server failed", zap.Error(err))
//	}
package server
