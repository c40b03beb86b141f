// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package binding

import (
	"context"
	"encoding/json"
	"strings"
)

// =============================================================================
// OLLAMA BINDING
// =============================================================================

// DefaultOllamaHost is the default Ollama address.
// Uses the explicit IPv4 address to avoid IPv6 resolution issues on Windows.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// ollamaBinding talks to an Ollama instance via its native chat API.
type ollamaBinding struct {
	host       string
	serviceKey string
}

func newOllama(cfg Config) *ollamaBinding {
	host := strings.TrimSuffix(cfg.HostAddress, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	return &ollamaBinding{host: host, serviceKey: cfg.ServiceKey}
}

func (b *ollamaBinding) Name() string {
	return BindingOllama
}

func (b *ollamaBinding) Validate() error {
	return validateHost(b.host)
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// Chat forwards the conversation to /api/chat (non-streaming).
func (b *ollamaBinding) Chat(ctx context.Context, req Request) (string, error) {
	payload := ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
	}

	body, status, err := postJSON(ctx, b.host+"/api/chat", payload, b.serviceKey)
	if err != nil {
		return "", &UpstreamError{Binding: b.Name(), Message: err.Error()}
	}

	var parsed ollamaChatResponse
	if status < 200 || status >= 300 {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			msg = parsed.Error
		}
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: msg}
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: "malformed chat response"}
	}
	return parsed.Message.Content, nil
}
