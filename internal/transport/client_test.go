// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the widget's two-call gateway protocol.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ParisNeo/tinyLollms/internal/model"
)

// =============================================================================
// BOOTSTRAP FETCH TESTS
// =============================================================================

func TestClient_FetchBootstrapInfo_Success(t *testing.T) {
	var gotPath, gotMethod string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(BootstrapInfo{
			AppName:        "Demo App",
			WelcomeMessage: "Welcome!",
			AllowedModels:  []string{"phi3", "mistral"},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	info, err := client.FetchBootstrapInfo(context.Background(), "demo-key")
	if err != nil {
		t.Fatalf("FetchBootstrapInfo() unexpected error: %v", err)
	}

	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if gotPath != "/api/app_info/demo-key" {
		t.Errorf("path = %q, want /api/app_info/demo-key", gotPath)
	}
	if info.WelcomeMessage != "Welcome!" {
		t.Errorf("WelcomeMessage = %q, want 'Welcome!'", info.WelcomeMessage)
	}
	if len(info.AllowedModels) != 2 || info.AllowedModels[0] != "phi3" {
		t.Errorf("AllowedModels = %v, want [phi3 mistral] in order", info.AllowedModels)
	}
}

func TestClient_FetchBootstrapInfo_NonSuccess(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer ts.Close()

			client := NewClient(ts.URL)
			info, err := client.FetchBootstrapInfo(context.Background(), "demo-key")

			if !errors.Is(err, ErrBootstrapUnavailable) {
				t.Errorf("error = %v, want ErrBootstrapUnavailable", err)
			}
			if info != nil {
				t.Errorf("info = %+v, want nil on failure", info)
			}
		})
	}
}

func TestClient_FetchBootstrapInfo_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	_, err := client.FetchBootstrapInfo(context.Background(), "demo-key")
	if !errors.Is(err, ErrBootstrapUnavailable) {
		t.Errorf("error = %v, want ErrBootstrapUnavailable", err)
	}
}

// =============================================================================
// CHAT SEND TESTS
// =============================================================================

func TestClient_SendChat_Success(t *testing.T) {
	var gotReq ChatRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{Response: "Hi there"})
	}))
	defer ts.Close()

	snapshot := []model.Message{
		model.NewUserMessage("Hello"),
	}

	client := NewClient(ts.URL)
	got, err := client.SendChat(context.Background(), "demo-key", "phi3", snapshot)
	if err != nil {
		t.Fatalf("SendChat() unexpected error: %v", err)
	}

	if got != "Hi there" {
		t.Errorf("response = %q, want 'Hi there'", got)
	}
	if gotReq.AppKey != "demo-key" {
		t.Errorf("app_key = %q, want 'demo-key'", gotReq.AppKey)
	}
	if gotReq.Model != "phi3" {
		t.Errorf("model = %q, want 'phi3'", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "Hello" {
		t.Errorf("messages = %+v, want one user message 'Hello'", gotReq.Messages)
	}
}

func TestClient_SendChat_FullHistorySerialized(t *testing.T) {
	var gotReq ChatRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(ChatResponse{Response: "ok"})
	}))
	defer ts.Close()

	conv := model.NewConversation()
	conv.AppendUser("q1")
	conv.AppendAssistant("a1")
	conv.AppendUser("q2")

	client := NewClient(ts.URL)
	if _, err := client.SendChat(context.Background(), "k", "m", conv.Snapshot()); err != nil {
		t.Fatalf("SendChat() unexpected error: %v", err)
	}

	wantRoles := []string{"user", "assistant", "user"}
	if len(gotReq.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d entries, want %d", len(gotReq.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if gotReq.Messages[i].Role != role {
			t.Errorf("messages[%d].Role = %q, want %q", i, gotReq.Messages[i].Role, role)
		}
	}
}

func TestClient_SendChat_ServerError(t *testing.T) {
	hits := 0

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "upstream exploded"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	_, err := client.SendChat(context.Background(), "k", "m", nil)

	if !errors.Is(err, ErrChatRequestFailed) {
		t.Errorf("error = %v, want ErrChatRequestFailed", err)
	}

	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("error = %T, want *ChatError", err)
	}
	if chatErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", chatErr.Status)
	}
	if chatErr.Message != "upstream exploded" {
		t.Errorf("Message = %q, want gateway detail carried through", chatErr.Message)
	}

	// One user action is exactly one network attempt.
	if hits != 1 {
		t.Errorf("handler hit %d times, want 1 (no retries)", hits)
	}
}

func TestClient_SendChat_DetailErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "Model not allowed for this application"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	_, err := client.SendChat(context.Background(), "k", "forbidden-model", nil)

	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("error = %T, want *ChatError", err)
	}
	if chatErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", chatErr.Status)
	}
	if chatErr.Message != "Model not allowed for this application" {
		t.Errorf("Message = %q, want detail body carried through", chatErr.Message)
	}
}

func TestClient_SendChat_MalformedSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not json"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	_, err := client.SendChat(context.Background(), "k", "m", nil)
	if !errors.Is(err, ErrChatRequestFailed) {
		t.Errorf("error = %v, want ErrChatRequestFailed on malformed body", err)
	}
}

func TestClient_SendChat_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // Closed before use: every dial fails.

	client := NewClient(ts.URL)
	_, err := client.SendChat(context.Background(), "k", "m", nil)

	if !errors.Is(err, ErrChatRequestFailed) {
		t.Errorf("error = %v, want ErrChatRequestFailed on network failure", err)
	}
	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("error = %T, want *ChatError", err)
	}
	if chatErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for network-level failure", chatErr.Status)
	}
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("")
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}

	trimmed := NewClient("http://gw.example/")
	if trimmed.BaseURL() != "http://gw.example" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", trimmed.BaseURL())
	}
}
