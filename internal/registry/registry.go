// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry provides process-wide registration of widget tags.
//
// A host page embeds the widget under a hyphenated tag name. The tag
// must be claimed exactly once per process; registering the same name
// again is a deliberate no-op, because hosts routinely include the
// widget bundle more than once. Every tag occurrence then gets its own
// independent instance from the registered factory.
package registry

import (
	"errors"
	"regexp"
	"sort"
	"sync"

	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// DefaultTagName is the tag the stock widget registers under.
const DefaultTagName = "lollms-chat"

// Error variables for registration.
var (
	// ErrInvalidTagName rejects names outside the custom-tag shape:
	// lowercase, starting with a letter, containing at least one hyphen.
	ErrInvalidTagName = errors.New("tag name must be lowercase and contain a hyphen")

	// ErrNilFactory rejects registration without a constructor.
	ErrNilFactory = errors.New("nil widget factory")
)

// tagNameRe is the accepted tag shape, validated once at registration.
var tagNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)+$`)

// Factory constructs a fresh widget instance for one tag occurrence.
type Factory func() *widget.Widget

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps tag names to widget factories.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register claims a tag name for a factory. Registering an
// already-claimed name is a no-op and returns nil; the first
// registration wins. Invalid names and nil factories are rejected.
func (r *Registry) Register(name string, factory Factory) error {
	if !tagNameRe.MatchString(name) {
		return ErrInvalidTagName
	}
	if factory == nil {
		return ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return nil
	}
	r.factories[name] = factory
	return nil
}

// Lookup returns the factory registered for a tag name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Names returns the registered tag names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// PROCESS-WIDE DEFAULT
// =============================================================================

var defaultRegistry = NewRegistry()

// Register claims a tag name in the process-wide registry.
func Register(name string, factory Factory) error {
	return defaultRegistry.Register(name, factory)
}

// Lookup resolves a tag name in the process-wide registry.
func Lookup(name string) (Factory, bool) {
	return defaultRegistry.Lookup(name)
}

// Names lists tags claimed in the process-wide registry.
func Names() []string {
	return defaultRegistry.Names()
}
