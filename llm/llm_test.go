package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUnconfiguredClient(t *testing.T) {
	c := New(Config{Model: "m"})
	_, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("got %v, want ErrNoEndpoint", err)
	}
}

func TestChat(t *testing.T) {
	var gotReq chatAPIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.Error(w, "not found", 404)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization: got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": gotReq.Model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"ok":true}`}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "sk-test", Model: "test-model"})
	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "go"}},
		Temperature: TempGeneration,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Content != `{"ok":true}` {
		t.Fatalf("content: got %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("usage: got %d, want 15", resp.Usage.TotalTokens)
	}
	if gotReq.Temperature != TempGeneration {
		t.Fatalf("temperature: got %f, want %f", gotReq.Temperature, TempGeneration)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format: got %+v", gotReq.ResponseFormat)
	}
	if gotReq.MaxTokens != 2048 {
		t.Fatalf("max_tokens default: got %d, want 2048", gotReq.MaxTokens)
	}
}

func TestChat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Model: "m"})
	if _, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestChat_EmptyMessages(t *testing.T) {
	c := New(Config{Endpoint: "http://localhost:0", Model: "m"})
	if _, err := c.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error for empty message list")
	}
}
