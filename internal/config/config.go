// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/ParisNeo/tinyLollms/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete tinylollms configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server configuration for the gateway process
	Server ServerConfig `toml:"server" json:"server"`

	// Widget configuration for the embedded chat surfaces
	Widget WidgetConfig `toml:"widget" json:"widget"`

	// Style configuration shared by the demo page and the TUI
	Style StyleConfig `toml:"style" json:"style"`

	// Admin credentials for the application management API
	Admin AdminConfig `toml:"admin" json:"admin"`
}

// ServerConfig contains the gateway process settings.
type ServerConfig struct {
	// ListenAddress is the host:port the gateway binds to
	ListenAddress string `toml:"listen_address" json:"listen_address"`
	// DatabasePath is the SQLite application registry location
	DatabasePath string `toml:"database_path" json:"database_path"`
	// RateLimit is the sustained requests/second budget per client (0 disables)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// RateBurst is the short burst allowance per client
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
	// Debug lowers the log level to debug
	Debug bool `toml:"debug" json:"debug"`
}

// WidgetConfig contains the defaults the local chat surfaces mount with.
type WidgetConfig struct {
	// GatewayURL is the gateway base URL the widget talks to
	GatewayURL string `toml:"gateway_url" json:"gateway_url"`
	// AppKey identifies this installation to the gateway
	AppKey string `toml:"app_key" json:"app_key"`
	// Model is the preferred model identifier
	Model string `toml:"model" json:"model"`
	// Title is the widget header title
	Title string `toml:"title" json:"title"`
	// AssistantName labels assistant turns
	AssistantName string `toml:"assistant_name" json:"assistant_name"`
	// WelcomeMessage greets the user before the first turn
	WelcomeMessage string `toml:"welcome_message" json:"welcome_message"`
}

// StyleConfig contains the shared presentation variables.
type StyleConfig struct {
	PrimaryColor    string `toml:"primary_color" json:"primary_color"`
	BackgroundColor string `toml:"background_color" json:"background_color"`
	// PanelWidth is the chat panel width in terminal columns
	PanelWidth int `toml:"panel_width" json:"panel_width"`
}

// AdminConfig contains the admin credential material. PasswordHash,
// when set, wins over the plaintext password.
type AdminConfig struct {
	Username     string `toml:"username" json:"username"`
	Password     string `toml:"password" json:"password"`
	PasswordHash string `toml:"password_hash" json:"password_hash"`
	TOTPSecret   string `toml:"totp_secret" json:"totp_secret"`
	JWTSecret    string `toml:"jwt_secret" json:"jwt_secret"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			ListenAddress: ":8002",
			DatabasePath:  "data/lollms.db",
			RateLimit:     5,
			RateBurst:     10,
			Debug:         false,
		},

		Widget: WidgetConfig{
			GatewayURL:    "http://localhost:8002",
			AppKey:        "",
			Model:         "default",
			Title:         "LollMS Chat",
			AssistantName: "Assistant",
		},

		Style: StyleConfig{
			PrimaryColor:    "#2563eb",
			BackgroundColor: "#0f172a",
			PanelWidth:      42,
		},

		Admin: AdminConfig{
			Username:  "admin",
			Password:  "admin123",
			JWTSecret: "supersecretjwtkey",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the tinylollms configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".tinylollms"), nil
}

// ConfigPath returns the TOML configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration, falling back to defaults when no file
// exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath reads the configuration from an explicit TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults replaces zero values with the built-in defaults so a
// partial file stays usable.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = def.Server.ListenAddress
	}
	if cfg.Server.DatabasePath == "" {
		cfg.Server.DatabasePath = def.Server.DatabasePath
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = def.Server.RateBurst
	}
	if cfg.Widget.GatewayURL == "" {
		cfg.Widget.GatewayURL = def.Widget.GatewayURL
	}
	if cfg.Widget.Model == "" {
		cfg.Widget.Model = def.Widget.Model
	}
	if cfg.Widget.Title == "" {
		cfg.Widget.Title = def.Widget.Title
	}
	if cfg.Widget.AssistantName == "" {
		cfg.Widget.AssistantName = def.Widget.AssistantName
	}
	if cfg.Style.PrimaryColor == "" {
		cfg.Style.PrimaryColor = def.Style.PrimaryColor
	}
	if cfg.Style.BackgroundColor == "" {
		cfg.Style.BackgroundColor = def.Style.BackgroundColor
	}
	if cfg.Style.PanelWidth == 0 {
		cfg.Style.PanelWidth = def.Style.PanelWidth
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = def.Admin.Username
	}
	if cfg.Admin.Password == "" && cfg.Admin.PasswordHash == "" {
		cfg.Admin.Password = def.Admin.Password
	}
	if cfg.Admin.JWTSecret == "" {
		cfg.Admin.JWTSecret = def.Admin.JWTSecret
	}
}

// ApplyEnvOverrides applies environment variables on top of the loaded
// configuration. The ADMIN_*, JWT_SECRET and SQLITE_DB names match the
// deployment environment of earlier gateway releases.
func (c *Config) ApplyEnvOverrides() {
	if username := os.Getenv("ADMIN_USERNAME"); username != "" {
		c.Admin.Username = username
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Admin.JWTSecret = secret
	}
	if db := os.Getenv("SQLITE_DB"); db != "" {
		c.Server.DatabasePath = db
	}

	if listen := os.Getenv("TINYLOLLMS_LISTEN"); listen != "" {
		c.Server.ListenAddress = listen
	}
	if gateway := os.Getenv("TINYLOLLMS_GATEWAY_URL"); gateway != "" {
		c.Widget.GatewayURL = gateway
	}
	if key := os.Getenv("TINYLOLLMS_APP_KEY"); key != "" {
		c.Widget.AppKey = key
	}
	if model := os.Getenv("TINYLOLLMS_MODEL"); model != "" {
		c.Widget.Model = model
	}
	if debug := os.Getenv("TINYLOLLMS_DEBUG"); debug != "" {
		c.Server.Debug = debug == "1" || strings.ToLower(debug) == "true"
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file.
// SECURITY: 0600 permissions, the admin section holds credentials.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# tinylollms configuration file\n")
	sb.WriteString("# Generated by tinylollms - edit with care\n")
	sb.WriteString("\n")
	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write prevents torn files when the watcher
	// reloads mid-save.
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q: %w", c.Server.ListenAddress, err)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_burst must not be negative")
	}
	if c.Style.PanelWidth < 0 {
		return fmt.Errorf("style.panel_width must not be negative")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
