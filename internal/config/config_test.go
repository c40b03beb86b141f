// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Server.ListenAddress != ":8002" {
		t.Errorf("ListenAddress = %q, want ':8002'", cfg.Server.ListenAddress)
	}
	if cfg.Widget.Title != "LollMS Chat" {
		t.Errorf("Title = %q, want 'LollMS Chat'", cfg.Widget.Title)
	}
	if cfg.Widget.Model != "default" {
		t.Errorf("Model = %q, want 'default'", cfg.Widget.Model)
	}
	if cfg.Admin.Username != "admin" {
		t.Errorf("Admin.Username = %q, want 'admin'", cfg.Admin.Username)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Widget.AppKey = "demo-key"
	cfg.Widget.Title = "Support Chat"
	cfg.Server.ListenAddress = "127.0.0.1:9999"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	// SECURITY: credential-bearing file must be owner-only
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Widget.AppKey != "demo-key" {
		t.Errorf("AppKey = %q, want 'demo-key'", loaded.Widget.AppKey)
	}
	if loaded.Widget.Title != "Support Chat" {
		t.Errorf("Title = %q, want 'Support Chat'", loaded.Widget.Title)
	}
	if loaded.Server.ListenAddress != "127.0.0.1:9999" {
		t.Errorf("ListenAddress = %q, want '127.0.0.1:9999'", loaded.Server.ListenAddress)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := []byte("[widget]\napp_key = \"only-key\"\n")
	if err := os.WriteFile(path, partial, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Widget.AppKey != "only-key" {
		t.Errorf("AppKey = %q, want 'only-key'", cfg.Widget.AppKey)
	}
	if cfg.Widget.Title != "LollMS Chat" {
		t.Errorf("Title = %q, want default", cfg.Widget.Title)
	}
	if cfg.Server.ListenAddress != ":8002" {
		t.Errorf("ListenAddress = %q, want default", cfg.Server.ListenAddress)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nbroken"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("LoadFromPath() = nil error for malformed TOML")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad listen address", func(c *Config) { c.Server.ListenAddress = "no-port" }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"negative burst", func(c *Config) { c.Server.RateBurst = -1 }},
		{"negative panel width", func(c *Config) { c.Style.PanelWidth = -10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "operator")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SQLITE_DB", "/tmp/env.db")
	t.Setenv("TINYLOLLMS_APP_KEY", "env-key")
	t.Setenv("TINYLOLLMS_DEBUG", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Admin.Username != "operator" {
		t.Errorf("Admin.Username = %q, want 'operator'", cfg.Admin.Username)
	}
	if cfg.Admin.Password != "hunter2" {
		t.Errorf("Admin.Password = %q, want 'hunter2'", cfg.Admin.Password)
	}
	if cfg.Admin.JWTSecret != "env-secret" {
		t.Errorf("Admin.JWTSecret = %q, want 'env-secret'", cfg.Admin.JWTSecret)
	}
	if cfg.Server.DatabasePath != "/tmp/env.db" {
		t.Errorf("DatabasePath = %q, want '/tmp/env.db'", cfg.Server.DatabasePath)
	}
	if cfg.Widget.AppKey != "env-key" {
		t.Errorf("AppKey = %q, want 'env-key'", cfg.Widget.AppKey)
	}
	if !cfg.Server.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Widget.Title = "original"

	clone := original.Clone()
	clone.Widget.Title = "cloned"

	if original.Widget.Title != "original" {
		t.Error("Clone should create an independent copy")
	}
	if clone.Widget.Title != "cloned" {
		t.Error("clone title should be modified")
	}
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()

		go func() {
			defer wg.Done()
			// May fail when no config file exists; only racing matters here.
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}
