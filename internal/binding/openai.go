// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package binding

import (
	"context"
	"encoding/json"
	"strings"
)

// =============================================================================
// OPENAI-COMPATIBLE BINDING
// =============================================================================

// DefaultOpenAIHost is used when no host address is configured.
const DefaultOpenAIHost = "https://api.openai.com/v1"

// openaiBinding talks to any OpenAI-compatible chat completions API,
// which covers hosted OpenAI as well as vLLM, LM Studio and friends.
type openaiBinding struct {
	host       string
	serviceKey string
}

func newOpenAI(cfg Config) *openaiBinding {
	host := strings.TrimSuffix(cfg.HostAddress, "/")
	if host == "" {
		host = DefaultOpenAIHost
	}
	return &openaiBinding{host: host, serviceKey: cfg.ServiceKey}
}

func (b *openaiBinding) Name() string {
	return BindingOpenAI
}

func (b *openaiBinding) Validate() error {
	return validateHost(b.host)
}

type openaiChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat forwards the conversation to the chat completions endpoint.
func (b *openaiBinding) Chat(ctx context.Context, req Request) (string, error) {
	payload := openaiChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
	}

	body, status, err := postJSON(ctx, b.completionsURL(), payload, b.serviceKey)
	if err != nil {
		return "", &UpstreamError{Binding: b.Name(), Message: err.Error()}
	}

	var parsed openaiChatResponse
	if status < 200 || status >= 300 {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: msg}
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: "malformed completion response"}
	}
	if len(parsed.Choices) == 0 {
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: "completion response had no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// completionsURL appends the chat completions path, tolerating hosts
// configured with or without the /v1 suffix.
func (b *openaiBinding) completionsURL() string {
	if strings.HasSuffix(b.host, "/v1") {
		return b.host + "/chat/completions"
	}
	return b.host + "/v1/chat/completions"
}
