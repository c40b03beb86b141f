// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the widget's two-call gateway protocol.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ParisNeo/tinyLollms/internal/model"
)

// Configuration constants for the gateway protocol.
const (
	// DefaultBaseURL is the gateway address the original deployment uses.
	DefaultBaseURL = "http://localhost:8002"

	// appInfoPath is the per-key bootstrap endpoint prefix.
	appInfoPath = "/api/app_info/"

	// chatPath is the chat completion endpoint.
	chatPath = "/api/chat"

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit

	// defaultUserAgent identifies widget traffic at the gateway.
	defaultUserAgent = "tinylollms/0.1.0"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all widget instances in the process. No
// client-level timeout: the protocol contract leaves deadline policy
// to the caller's context and the transport itself.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for the two protocol operations.
var (
	// ErrBootstrapUnavailable indicates the info fetch failed. Callers
	// recover with local defaults; this never reaches the end user.
	ErrBootstrapUnavailable = errors.New("bootstrap info unavailable")

	// ErrChatRequestFailed indicates the chat exchange failed in any way:
	// network error, non-2xx status, or a malformed response body.
	ErrChatRequestFailed = errors.New("chat request failed")
)

// ChatError carries the failure detail of a chat exchange.
type ChatError struct {
	Status  int    // HTTP status, 0 for network-level failures
	Message string // gateway-provided detail when available
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("chat request failed: %s", e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("chat request failed (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chat request failed (HTTP %d)", e.Status)
}

// Unwrap lets errors.Is match ErrChatRequestFailed on any ChatError.
func (e *ChatError) Unwrap() error {
	return ErrChatRequestFailed
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// BootstrapInfo is the per-key info payload fetched once on mount.
type BootstrapInfo struct {
	AppName        string   `json:"app_name,omitempty"`
	WelcomeMessage string   `json:"welcome_message"`
	AllowedModels  []string `json:"allowed_models"`
}

// ChatMessage is a single history entry in wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to the chat endpoint. It carries the
// entire conversation so far; the gateway holds no session state.
type ChatRequest struct {
	AppKey   string        `json:"app_key"`
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the success body of the chat endpoint.
type ChatResponse struct {
	Response string `json:"response"`
}

// gatewayErrorBody covers both error shapes gateways emit: the native
// {"error": ...} form and the {"detail": ...} form of older deployments.
type gatewayErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (b gatewayErrorBody) message() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Detail
}

// wireMessages converts a conversation snapshot to wire format,
// preserving order.
func wireMessages(snapshot []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(snapshot))
	for _, msg := range snapshot {
		out = append(out, ChatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return out
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks the two-endpoint gateway protocol. Exactly two
// operations exist; there are no retries and no backoff anywhere in
// this package, deliberately. A failed call fails once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client against the given gateway base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		userAgent:  defaultUserAgent,
	}
}

// WithHTTPClient sets a custom HTTP client (tests, instrumented hosts).
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

// WithUserAgent sets a custom User-Agent header value.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// BaseURL returns the configured gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// BOOTSTRAP FETCH
// =============================================================================

// FetchBootstrapInfo performs the one-time per-key info fetch issued on
// mount. Best-effort by contract: every failure mode collapses into
// ErrBootstrapUnavailable and the caller proceeds with local defaults.
func (c *Client) FetchBootstrapInfo(ctx context.Context, appKey string) (*BootstrapInfo, error) {
	requestURL := c.baseURL + appInfoPath + url.PathEscape(appKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBootstrapUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBootstrapUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBootstrapUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrBootstrapUnavailable, resp.StatusCode)
	}

	var info BootstrapInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBootstrapUnavailable, err)
	}
	return &info, nil
}

// =============================================================================
// CHAT SEND
// =============================================================================

// SendChat posts the full conversation and returns the assistant's
// reply text. Any failure yields a *ChatError; the caller turns it
// into a user-visible fallback line, never an exception path.
func (c *Client) SendChat(ctx context.Context, appKey, modelID string, snapshot []model.Message) (string, error) {
	reqBody := ChatRequest{
		AppKey:   appKey,
		Model:    modelID,
		Messages: wireMessages(snapshot),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ChatError{Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &ChatError{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ChatError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", &ChatError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &ChatError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return chatResp.Response, nil
}

// handleErrorResponse converts a non-200 chat response into a ChatError,
// surfacing the gateway's own message when the body carries one.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var gwErr gatewayErrorBody
	if err := json.Unmarshal(body, &gwErr); err == nil && gwErr.message() != "" {
		return &ChatError{Status: statusCode, Message: gwErr.message()}
	}
	return &ChatError{Status: statusCode}
}

// =============================================================================
// HELPERS
// =============================================================================

// readResponse reads the response body with size limits.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}
