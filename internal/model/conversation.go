// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered message log for one mounted widget
// instance. It is strictly append-only: no removal, no deduplication,
// no trimming. The log grows without bound for the lifetime of the
// instance and is discarded wholesale when the instance is torn down.
//
// Ordering rule: a user message is appended before its request goes
// out, and the assistant reply is appended only after that request's
// response arrives. Callers serialize the log via Snapshot, which is
// the literal history sent upstream.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages, insertion order significant
	messages []Message
}

// NewConversation creates a new empty conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the log. O(1), order preserving.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
	c.UpdatedAt = time.Now()
}

// AppendUser creates and appends a user message.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// AppendAssistant creates and appends an assistant message.
func (c *Conversation) AppendAssistant(content string) Message {
	msg := NewAssistantMessage(content)
	c.Append(msg)
	return msg
}

// Snapshot returns a copy of the full ordered log. The returned slice
// is owned by the caller; mutating it never touches the conversation.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Last returns the most recent message and true, or a zero Message and
// false when the log is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// LastByRole returns the most recent message with the given role.
func (c *Conversation) LastByRole(role Role) (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == role {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview() string {
	if len(c.messages) == 0 {
		return "Empty conversation"
	}
	if first, ok := c.LastByRole(RoleUser); ok {
		return first.Preview(100)
	}
	return c.messages[0].Preview(100)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}
