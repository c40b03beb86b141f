// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for tinylollms.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdWidget Command = iota // Chat panel (default)
	CmdServe                 // Gateway process
	CmdChat                  // Plain line-based chat
	CmdAdmin                 // Application key management
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Gateway string // Gateway base URL override
	AppKey  string // Application key override
	Model   string // Preferred model override

	// Command-specific
	Subcommand string

	// Raw args remaining after global flag parsing
	Raw []string
}

const usageText = `tinylollms - embeddable LLM chat widget and gateway

The gateway relays chat traffic from embedded widgets to an LLM
service and keeps the per-application keys, allowed models, and
welcome messages in a local registry. The widget side is a terminal
chat panel speaking the same two-endpoint protocol as the embeddable
web snippet.

Usage:
  tinylollms                     Open the chat panel (default)
  tinylollms widget              Open the chat panel
  tinylollms chat                Line-based chat without the panel
  tinylollms serve               Run the gateway
  tinylollms admin [subcommand]  Manage registered applications
  tinylollms version             Print version information
  tinylollms help                Show this help

Serve Command:
  tinylollms serve               Run with the configured defaults
    --listen ADDR                Listen address (default :8002)
    --db PATH                    Application registry path
    --debug                      Debug logging

Admin Commands:
  tinylollms admin add NAME      Register an application
    --binding NAME               Upstream binding: lollms, ollama, openai
    --host URL                   Upstream host address
    --service-key KEY            Upstream service key, if the host wants one
    --models LIST                Comma-separated allowed models
    --welcome TEXT               Welcome message shown before the first turn
    --key KEY                    Explicit application key (default: generated)
  tinylollms admin list          List registered applications
  tinylollms admin remove KEY    Delete an application
  tinylollms admin passwd        Store a hashed admin password in the config file

Widget and Chat Flags:
  --gateway URL   Gateway base URL (default from config file)
  --app-key KEY   Application key to chat under
  --model NAME    Preferred model
  --width N       Panel width in columns

Chat Commands (during a chat session):
  /model [name]   Show or switch the model
  /models         List the models this key may use
  /history        Print the conversation so far
  /quit, /q       Exit chat
  Ctrl+C          Cancel the reply being generated
  Ctrl+D          Exit chat

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Configuration:
  ~/.tinylollms/config.toml holds the gateway, widget, style, and
  admin sections. The panel re-reads it while running; edits to the
  widget and style sections apply without a restart.

Examples:
  tinylollms serve --listen :8002
  tinylollms admin add "Shop Bot" --binding lollms --host http://localhost:9600
  tinylollms admin list
  tinylollms widget --app-key d41f...
  tinylollms chat --gateway http://localhost:8002 --app-key d41f...

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("tinylollms version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No arguments opens the panel
	if len(remaining) == 0 {
		return CmdWidget, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "widget", "panel":
		return CmdWidget, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "serve", "server", "gateway":
		return CmdServe, parsedArgs

	case "admin":
		// Argument parsing is done in admin.go HandleAdmin
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdAdmin, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown word: keep it visible to the handler and open the panel
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdWidget, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--gateway":
			if i+1 < len(args) {
				i++
				parsedArgs.Gateway = args[i]
			}
		case "--app-key":
			if i+1 < len(args) {
				i++
				parsedArgs.AppKey = args[i]
			}
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--gateway="):
				parsedArgs.Gateway = strings.TrimPrefix(arg, "--gateway=")
			case strings.HasPrefix(arg, "--app-key="):
				parsedArgs.AppKey = strings.TrimPrefix(arg, "--app-key=")
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}
