// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// tinylollms.
//
// The TOML file carries four sections: [server] for the gateway
// process, [widget] for the local chat surfaces, [style] for shared
// presentation variables and [admin] for management credentials.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ADMIN_*, JWT_SECRET, SQLITE_DB, TINYLOLLMS_*)
//   - ~/.tinylollms/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits:
//
//	w, _ := config.NewWatcher(path, func(cfg *config.Config) {
//	    // apply the new snapshot
//	})
//	w.Watch()
package config
