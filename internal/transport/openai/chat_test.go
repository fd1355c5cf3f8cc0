package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/rulesage/internal/domain"
)

func TestChatClient_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Black dragons breathe acid."},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128},
		})
	}))
	defer server.Close()

	chat := NewChatClient(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-chat"})

	res, err := chat.Complete(context.Background(), domain.CompletionRequest{
		System:      "You are a rulebook assistant.",
		User:        "What do black dragons breathe?",
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "Black dragons breathe acid." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.PromptTokens != 120 || res.CompletionTokens != 8 {
		t.Errorf("unexpected usage %+v", res)
	}

	if got.Model != "test-chat" || got.MaxTokens != 800 {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestChatClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "cmpl-1", "choices": []any{}})
	}))
	defer server.Close()

	chat := NewChatClient(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-chat"})

	_, err := chat.Complete(context.Background(), domain.CompletionRequest{User: "q"})
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
}

func TestChatClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "context length exceeded", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	chat := NewChatClient(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-chat"})

	_, err := chat.Complete(context.Background(), domain.CompletionRequest{User: "q"})
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
}
