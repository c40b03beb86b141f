// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cfg.Widget.Title = "Renamed Chat"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-changes:
			if got.Widget.Title == "Renamed Chat" {
				return
			}
			// Stale snapshot from an earlier event, keep waiting
		case <-deadline:
			t.Fatal("watcher never delivered the updated config")
		}
	}
}

func TestWatcherRequiresCallback(t *testing.T) {
	if _, err := NewWatcher("config.toml", nil); err == nil {
		t.Error("NewWatcher() = nil error without callback")
	}
}

func TestWatcherCloseStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	w, err := NewWatcher(path, func(*Config) {})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
