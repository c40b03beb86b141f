// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the widget, the
// transport layer, and the gateway for representing a chat exchange.
//
// # Key Types
//
//   - Conversation: Append-only ordered message log for one widget instance
//   - Message: Single immutable message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a conversation and append turns:
//
//	conv := model.NewConversation()
//	conv.AppendUser("Hello!")
//	conv.AppendAssistant("Hi there")
//	history := conv.Snapshot()
//
// The log is deliberately unbounded: there is no trimming and no
// persistence, so a very long-lived instance grows linearly with the
// number of exchanged messages. This is an accepted limitation; the
// log lives exactly as long as its widget instance.
package model
