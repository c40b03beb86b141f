// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package binding

import (
	"context"
	"encoding/json"
	"strings"
)

// =============================================================================
// LOLLMS BINDING
// =============================================================================

// DefaultLollmsHost is the default native LollMS server address.
const DefaultLollmsHost = "http://localhost:9600"

// lollmsBinding talks to a native LollMS server. The server exposes a
// completion endpoint, so the conversation is flattened into the LollMS
// discussion prompt format before sending.
type lollmsBinding struct {
	host       string
	serviceKey string
}

func newLollms(cfg Config) *lollmsBinding {
	host := strings.TrimSuffix(cfg.HostAddress, "/")
	if host == "" {
		host = DefaultLollmsHost
	}
	return &lollmsBinding{host: host, serviceKey: cfg.ServiceKey}
}

func (b *lollmsBinding) Name() string {
	return BindingLollms
}

func (b *lollmsBinding) Validate() error {
	return validateHost(b.host)
}

type lollmsGenerateRequest struct {
	Prompt    string `json:"prompt"`
	ModelName string `json:"model_name,omitempty"`
	Stream    bool   `json:"stream"`
}

// Chat flattens the conversation and requests a completion.
func (b *lollmsBinding) Chat(ctx context.Context, req Request) (string, error) {
	payload := lollmsGenerateRequest{
		Prompt:    lollmsPrompt(req.Messages),
		ModelName: req.Model,
		Stream:    false,
	}

	body, status, err := postJSON(ctx, b.host+"/lollms_generate", payload, b.serviceKey)
	if err != nil {
		return "", &UpstreamError{Binding: b.Name(), Message: err.Error()}
	}
	if status < 200 || status >= 300 {
		return "", &UpstreamError{Binding: b.Name(), Status: status, Message: strings.TrimSpace(string(body))}
	}

	// The server answers with the generated text. Newer releases quote
	// it as a JSON string; older ones send it bare.
	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil {
		return quoted, nil
	}
	return string(body), nil
}

// lollmsPrompt renders messages in the LollMS discussion format and
// leaves the prompt open on an assistant header for the completion.
func lollmsPrompt(messages []Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString("!@>")
		sb.WriteString(m.Role)
		sb.WriteString(":\n")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("!@>assistant:\n")
	return sb.String()
}
