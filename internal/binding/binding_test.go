// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package binding adapts the gateway to the upstream LLM backends an
// application may be bound to.
package binding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestNewUnknownBinding(t *testing.T) {
	_, err := New(Config{Binding: "vllm"})
	if !errors.Is(err, ErrUnknownBinding) {
		t.Errorf("err = %v, want ErrUnknownBinding", err)
	}
}

func TestNewAppliesDefaultHosts(t *testing.T) {
	tests := []struct {
		binding  string
		wantHost string
	}{
		{BindingLollms, DefaultLollmsHost},
		{BindingOpenAI, DefaultOpenAIHost},
		{BindingOllama, DefaultOllamaHost},
	}

	for _, tt := range tests {
		t.Run(tt.binding, func(t *testing.T) {
			b, err := New(Config{Binding: tt.binding})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if b.Name() != tt.binding {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.binding)
			}
			if err := b.Validate(); err != nil {
				t.Errorf("Validate() error = %v with default host", err)
			}

			var host string
			switch impl := b.(type) {
			case *lollmsBinding:
				host = impl.host
			case *openaiBinding:
				host = impl.host
			case *ollamaBinding:
				host = impl.host
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
			if got := DefaultHost(tt.binding); got != tt.wantHost {
				t.Errorf("DefaultHost(%q) = %q, want %q", tt.binding, got, tt.wantHost)
			}
		})
	}
}

func TestValidateRejectsBadHosts(t *testing.T) {
	tests := []struct {
		name string
		host string
	}{
		{"empty", ""},
		{"no scheme", "localhost:9600"},
		{"wrong scheme", "ftp://host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &lollmsBinding{host: tt.host}
			if err := b.Validate(); err == nil {
				t.Errorf("Validate() = nil for host %q", tt.host)
			}
		})
	}
}

// =============================================================================
// LOLLMS BINDING TESTS
// =============================================================================

func TestLollmsPromptFormat(t *testing.T) {
	prompt := lollmsPrompt([]Message{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
		{Role: "user", Content: "Bye"},
	})

	want := "!@>user:\nHello\n!@>assistant:\nHi there\n!@>user:\nBye\n!@>assistant:\n"
	if prompt != want {
		t.Errorf("prompt = %q, want %q", prompt, want)
	}
}

func TestLollmsChat(t *testing.T) {
	var seen lollmsGenerateRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lollms_generate" {
			t.Errorf("path = %q, want /lollms_generate", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&seen)
		json.NewEncoder(w).Encode("Generated reply")
	}))
	defer srv.Close()

	b := &lollmsBinding{host: srv.URL, serviceKey: "svc-secret"}
	got, err := b.Chat(context.Background(), Request{
		Model:    "phi3",
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "Generated reply" {
		t.Errorf("Chat() = %q, want 'Generated reply'", got)
	}
	if auth != "Bearer svc-secret" {
		t.Errorf("Authorization = %q, want bearer service key", auth)
	}
	if seen.ModelName != "phi3" {
		t.Errorf("model_name = %q, want 'phi3'", seen.ModelName)
	}
	if seen.Stream {
		t.Error("stream = true, want false")
	}
	if !strings.Contains(seen.Prompt, "!@>user:\nHello") {
		t.Errorf("prompt missing user turn: %q", seen.Prompt)
	}
	if !strings.HasSuffix(seen.Prompt, "!@>assistant:\n") {
		t.Errorf("prompt does not end on assistant header: %q", seen.Prompt)
	}
}

func TestLollmsChatBareTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text reply"))
	}))
	defer srv.Close()

	b := &lollmsBinding{host: srv.URL}
	got, err := b.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "plain text reply" {
		t.Errorf("Chat() = %q, want 'plain text reply'", got)
	}
}

// =============================================================================
// OPENAI BINDING TESTS
// =============================================================================

func TestOpenAIChat(t *testing.T) {
	var seen openaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want 'Bearer sk-test'", got)
		}
		json.NewDecoder(r.Body).Decode(&seen)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sure thing"}}]}`))
	}))
	defer srv.Close()

	b := &openaiBinding{host: srv.URL, serviceKey: "sk-test"}
	got, err := b.Chat(context.Background(), Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "Help"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "Sure thing" {
		t.Errorf("Chat() = %q, want 'Sure thing'", got)
	}
	if seen.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want 'gpt-4o-mini'", seen.Model)
	}
	if len(seen.Messages) != 1 || seen.Messages[0].Content != "Help" {
		t.Errorf("messages = %+v, want the forwarded turn", seen.Messages)
	}
}

func TestOpenAICompletionsURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8000", "http://localhost:8000/v1/chat/completions"},
	}

	for _, tt := range tests {
		b := &openaiBinding{host: tt.host}
		if got := b.completionsURL(); got != tt.want {
			t.Errorf("completionsURL(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestOpenAIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	b := &openaiBinding{host: srv.URL}
	_, err := b.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", upErr.Status)
	}
	if upErr.Message != "Incorrect API key provided" {
		t.Errorf("Message = %q, want the extracted error message", upErr.Message)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	b := &openaiBinding{host: srv.URL}
	_, err := b.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

// =============================================================================
// OLLAMA BINDING TESTS
// =============================================================================

func TestOllamaChat(t *testing.T) {
	var seen ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&seen)
		w.Write([]byte(`{"message":{"role":"assistant","content":"From Ollama"},"done":true}`))
	}))
	defer srv.Close()

	b := &ollamaBinding{host: srv.URL}
	got, err := b.Chat(context.Background(), Request{
		Model:    "mistral",
		Messages: []Message{{Role: "user", Content: "Hey"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "From Ollama" {
		t.Errorf("Chat() = %q, want 'From Ollama'", got)
	}
	if seen.Model != "mistral" {
		t.Errorf("model = %q, want 'mistral'", seen.Model)
	}
	if seen.Stream {
		t.Error("stream = true, want false")
	}
}

func TestOllamaErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer srv.Close()

	b := &ollamaBinding{host: srv.URL}
	_, err := b.Chat(context.Background(), Request{Model: "missing", Messages: []Message{{Role: "user", Content: "hi"}}})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", upErr.Status)
	}
	if upErr.Message != "model 'missing' not found" {
		t.Errorf("Message = %q, want the extracted error", upErr.Message)
	}
}

// =============================================================================
// TRANSPORT FAILURE TESTS
// =============================================================================

func TestChatNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	b := &ollamaBinding{host: srv.URL}
	_, err := b.Chat(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport failures", upErr.Status)
	}
}
