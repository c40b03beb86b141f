// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package widget implements the embeddable chat widget core.
package widget

import (
	"strconv"
	"strings"
)

// Documented defaults for missing host attributes.
const (
	DefaultModel         = "default"
	DefaultTitle         = "LollMS Chat"
	DefaultAssistantName = "Assistant"
)

// Host attribute names. The app key accepts both spellings hosts use.
const (
	AttrAppKey         = "app-key"
	attrAppKeyAlt      = "app_key"
	AttrModel          = "model"
	AttrTitle          = "title"
	AttrAssistantName  = "assistant-name"
	AttrWelcomeMessage = "welcome-message"

	// Style-affecting attributes, forwarded to the styles layer.
	AttrPrimaryColor    = "primary-color"
	AttrBackgroundColor = "background-color"
	AttrPanelWidth      = "panel-width"
)

// =============================================================================
// ATTRIBUTES
// =============================================================================

// Attrs is the host-supplied attribute set, as declared on the tag.
type Attrs map[string]string

// lookup returns the first present attribute among the given names.
func (a Attrs) lookup(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := a[name]; ok {
			return v, true
		}
	}
	return "", false
}

// =============================================================================
// STYLE CONFIGURATION
// =============================================================================

// StyleConfig carries the host-overridable style variables. Empty
// values mean "use the theme default"; nothing here is hard-coded into
// rendering.
type StyleConfig struct {
	PrimaryColor    string // accent color, e.g. "#4a6cf7"
	BackgroundColor string // panel background color
	PanelWidth      int    // panel width, 0 = theme default
}

// =============================================================================
// WIDGET CONFIGURATION
// =============================================================================

// Config is the typed snapshot AttributeConfig exposes. It is rebuilt
// from attributes on mount and on every explicit Reconfigure call;
// nothing updates it reactively behind the host's back.
//
// Invariant: when AllowedModels is non-empty, SelectedModel is always
// one of its members; when it is empty, SelectedModel equals Model.
// normalize() reestablishes this after every change.
type Config struct {
	AppKey         string
	Model          string
	SelectedModel  string
	AssistantName  string
	Title          string
	WelcomeMessage string
	AllowedModels  []string

	Style StyleConfig
}

// ConfigFromAttrs reads the host attributes into a snapshot, applying
// the documented defaults for anything missing. No network, no side
// effects.
func ConfigFromAttrs(attrs Attrs) Config {
	cfg := Config{
		Model:         DefaultModel,
		Title:         DefaultTitle,
		AssistantName: DefaultAssistantName,
	}

	if v, ok := attrs.lookup(AttrAppKey, attrAppKeyAlt); ok {
		cfg.AppKey = strings.TrimSpace(v)
	}
	if v, ok := attrs.lookup(AttrModel); ok && strings.TrimSpace(v) != "" {
		cfg.Model = strings.TrimSpace(v)
	}
	if v, ok := attrs.lookup(AttrTitle); ok && strings.TrimSpace(v) != "" {
		cfg.Title = v
	}
	if v, ok := attrs.lookup(AttrAssistantName); ok && strings.TrimSpace(v) != "" {
		cfg.AssistantName = v
	}
	if v, ok := attrs.lookup(AttrWelcomeMessage); ok {
		cfg.WelcomeMessage = v
	}

	if v, ok := attrs.lookup(AttrPrimaryColor); ok {
		cfg.Style.PrimaryColor = strings.TrimSpace(v)
	}
	if v, ok := attrs.lookup(AttrBackgroundColor); ok {
		cfg.Style.BackgroundColor = strings.TrimSpace(v)
	}
	if v, ok := attrs.lookup(AttrPanelWidth); ok {
		if width, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && width > 0 {
			cfg.Style.PanelWidth = width
		}
	}

	cfg.normalize()
	return cfg
}

// normalize reestablishes the selected-model invariant. Preference
// order when the current selection is not allowed: the statically
// configured model if allowed, otherwise the first allowed model.
func (c *Config) normalize() {
	if len(c.AllowedModels) == 0 {
		c.SelectedModel = c.Model
		return
	}
	if c.modelAllowed(c.SelectedModel) {
		return
	}
	if c.modelAllowed(c.Model) {
		c.SelectedModel = c.Model
		return
	}
	c.SelectedModel = c.AllowedModels[0]
}

// modelAllowed reports membership in the allowed list.
func (c *Config) modelAllowed(id string) bool {
	for _, m := range c.AllowedModels {
		if m == id {
			return true
		}
	}
	return false
}

// SelectorVisible reports whether the model selector should be shown:
// only when there is an actual choice to make.
func (c *Config) SelectorVisible() bool {
	return len(c.AllowedModels) > 1
}

// clone returns a copy safe to hand to callers.
func (c Config) clone() Config {
	out := c
	out.AllowedModels = make([]string, len(c.AllowedModels))
	copy(out.AllowedModels, c.AllowedModels)
	return out
}
