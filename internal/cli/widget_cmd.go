// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// widget_cmd.go - Chat panel handler for the tinylollms CLI.
//
// Handles the "tinylollms widget" command (also the default when no
// command is given): hosts the chat widget in a terminal panel.
//
// Command: widget
// Aliases: panel
//
// Examples:
//   tinylollms                           Open the panel with config defaults
//   tinylollms widget --app-key KEY      Chat under a specific application key
//   tinylollms widget --model mistral    Prefer a model
//   tinylollms widget --gateway URL      Talk to a non-default gateway
package cli

import (
	"strconv"

	"github.com/ParisNeo/tinyLollms/internal/config"
	"github.com/ParisNeo/tinyLollms/internal/registry"
	"github.com/ParisNeo/tinyLollms/internal/transport"
	"github.com/ParisNeo/tinyLollms/internal/ui"
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// attrsFromConfig converts the config file's widget and style sections
// into host attributes. CLI flags win over file values.
func attrsFromConfig(cfg *config.Config, args Args) widget.Attrs {
	attrs := widget.Attrs{}
	set := func(name, value string) {
		if value != "" {
			attrs[name] = value
		}
	}

	set(widget.AttrAppKey, cfg.Widget.AppKey)
	set(widget.AttrModel, cfg.Widget.Model)
	set(widget.AttrTitle, cfg.Widget.Title)
	set(widget.AttrAssistantName, cfg.Widget.AssistantName)
	set(widget.AttrWelcomeMessage, cfg.Widget.WelcomeMessage)
	set(widget.AttrPrimaryColor, cfg.Style.PrimaryColor)
	set(widget.AttrBackgroundColor, cfg.Style.BackgroundColor)
	if cfg.Style.PanelWidth > 0 {
		attrs[widget.AttrPanelWidth] = strconv.Itoa(cfg.Style.PanelWidth)
	}

	set(widget.AttrAppKey, args.AppKey)
	set(widget.AttrModel, args.Model)
	parser := NewArgParser(args.Raw)
	if width := parser.FlagIntOrDefault("width", 0); width > 0 {
		attrs[widget.AttrPanelWidth] = strconv.Itoa(width)
	}
	return attrs
}

// gatewayURL resolves the gateway base URL for the chat surfaces.
func gatewayURL(cfg *config.Config, args Args) string {
	if args.Gateway != "" {
		return args.Gateway
	}
	return cfg.Widget.GatewayURL
}

// newWidget claims the default tag on first use, then constructs this
// occurrence's instance through the registered factory. One command
// runs per process, so the first claim's gateway client is the only
// one in play.
func newWidget(baseURL string) *widget.Widget {
	client := transport.NewClient(baseURL)
	_ = registry.Register(registry.DefaultTagName, func() *widget.Widget {
		return widget.New(client)
	})
	if factory, ok := registry.Lookup(registry.DefaultTagName); ok {
		return factory()
	}
	return widget.New(client)
}

// HandleWidget opens the terminal chat panel.
func HandleWidget(args Args) error {
	cfg := config.Global()

	attrs := attrsFromConfig(cfg, args)
	w := newWidget(gatewayURL(cfg, args))
	p := ui.NewProgram(w, attrs)

	// Live reload: edits to the widget and style sections of the
	// config file reach the mounted panel without a restart.
	if path, err := config.ConfigPath(); err == nil {
		watcher, werr := config.NewWatcher(path, func(next *config.Config) {
			config.SetGlobal(next.Clone())
			p.Send(ui.ReconfigureMsg{Attrs: attrsFromConfig(next, args)})
		})
		if werr == nil {
			if watcher.Watch() == nil {
				defer watcher.Close()
			} else {
				watcher.Close()
			}
		}
	}

	_, err := p.Run()
	return err
}
