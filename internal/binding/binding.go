// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package binding adapts the gateway to the upstream LLM backends an
// application may be bound to.
package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// BindingLollms targets a native LollMS server.
	BindingLollms = "lollms"

	// BindingOpenAI targets any OpenAI-compatible chat completions API.
	BindingOpenAI = "openai"

	// BindingOllama targets a local or remote Ollama instance.
	BindingOllama = "ollama"

	// DefaultTimeout bounds one upstream generation round trip.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize limits upstream response bodies (10MB).
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient is used by every binding.
// PERFORMANCE: Connection pooling via shared transport.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrUnknownBinding = errors.New("unknown binding")
	ErrNoHostAddress  = errors.New("binding requires a host address")
	ErrUpstream       = errors.New("upstream request failed")
)

// UpstreamError describes a failed exchange with a provider backend.
type UpstreamError struct {
	Binding string
	Status  int // HTTP status from the backend, 0 for transport failures
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s backend returned status %d: %s", e.Binding, e.Status, e.Message)
	}
	return fmt.Sprintf("%s backend unreachable: %s", e.Binding, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// =============================================================================
// TYPES
// =============================================================================

// Message is one chat turn forwarded upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries one generation request to a backend.
type Request struct {
	Model    string
	Messages []Message
}

// Binding is a provider backend the gateway can forward chat turns to.
type Binding interface {
	// Name returns the registry name of the binding.
	Name() string

	// Chat forwards the conversation and returns the assistant reply text.
	Chat(ctx context.Context, req Request) (string, error)

	// Validate checks that the binding configuration is usable.
	Validate() error
}

// Config selects and parameterizes a binding, mirroring the columns of
// the application registry.
type Config struct {
	Binding     string
	HostAddress string
	ServiceKey  string
}

// =============================================================================
// REGISTRY
// =============================================================================

// New constructs the binding named in cfg.
func New(cfg Config) (Binding, error) {
	switch cfg.Binding {
	case BindingLollms:
		return newLollms(cfg), nil
	case BindingOpenAI:
		return newOpenAI(cfg), nil
	case BindingOllama:
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBinding, cfg.Binding)
	}
}

// Names returns the supported binding names.
func Names() []string {
	return []string{BindingLollms, BindingOllama, BindingOpenAI}
}

// DefaultHost returns the address a binding falls back to when the
// application has none configured.
func DefaultHost(name string) string {
	switch name {
	case BindingOllama:
		return DefaultOllamaHost
	case BindingOpenAI:
		return DefaultOpenAIHost
	default:
		return DefaultLollmsHost
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// postJSON sends one JSON request and returns the body and status.
// The service key, when present, travels as a bearer token.
func postJSON(ctx context.Context, requestURL string, body any, serviceKey string) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+serviceKey)
	}

	resp, err := sharedHTTPClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}

// readResponse reads the response body with a size limit.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}

// validateHost checks that host parses as an absolute http(s) URL.
func validateHost(host string) error {
	if host == "" {
		return ErrNoHostAddress
	}
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("invalid host address %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid host address %q: scheme must be http or https", host)
	}
	return nil
}
