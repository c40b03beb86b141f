// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists the application registry the gateway consults
// on every widget request.
package store

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the application registry
const Schema = `
-- Applications table: one row per registered embedder.
-- The key doubles as the public credential widgets present.
CREATE TABLE IF NOT EXISTS applications (
    key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    binding TEXT NOT NULL,
    host_address TEXT,
    service_key TEXT,
    welcome_message TEXT,
    allowed_models TEXT NOT NULL DEFAULT '[]'  -- JSON array, order preserved
);

CREATE INDEX IF NOT EXISTS idx_applications_name ON applications(name);
`
