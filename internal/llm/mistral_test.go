package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewMistralClient_RequiresAPIKey(t *testing.T) {
	_, err := NewMistralClient("")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestMistralClient_Generate(t *testing.T) {
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewMistralClient("test-key", WithBaseURL(server.URL), WithModel("test-model"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answer, err := client.Generate(context.Background(), "hi", GenerateOptions{
		SystemPrompt: "be brief",
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "hello there" {
		t.Errorf("unexpected answer: %q", answer)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("unexpected model: %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "hi" {
		t.Errorf("unexpected messages: %#v", gotReq.Messages)
	}
}

func TestMistralClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewMistralClient("bad-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Generate(context.Background(), "hi", GenerateOptions{}); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestMistralClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client, err := NewMistralClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Generate(context.Background(), "hi", GenerateOptions{}); err == nil {
		t.Error("expected error for empty choices")
	}
}
