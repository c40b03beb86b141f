// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution
// for tinylollms.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global flags
//   - ArgParser: Unified flag/positional parsing for subcommands
//
// # Usage
//
// Parse and dispatch commands:
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdServe:
//	    return cli.HandleServe(args)
//	case cli.CmdWidget:
//	    return cli.HandleWidget(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - widget: Terminal chat panel (default command)
//   - chat: Line-based chat with input history
//   - serve: Run the gateway with the application registry
//   - admin: Register, list, and remove application keys; set the
//     admin password hash
//   - version, help
//
// The widget, chat, and serve commands read their defaults from the
// config file; flags override per invocation.
package cli
