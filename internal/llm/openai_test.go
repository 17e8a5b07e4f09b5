package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openaiReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 123,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func TestOpenAICompleteSendsConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected Authorization header %q", auth)
		}

		var req struct {
			Model          string          `json:"model"`
			ResponseFormat json.RawMessage `json:"response_format"`
			Messages       []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Fatalf("expected model gpt-4o-mini, got %q", req.Model)
		}
		if len(req.ResponseFormat) != 0 {
			t.Fatalf("expected no response format without JSON mode, got %s", req.ResponseFormat)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "- user: I like Go." {
			t.Fatalf("unexpected messages: %#v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(openaiReply("  Solid fundamentals.  "))
	}))
	defer server.Close()

	client, err := NewClient("openai", "test-key", "gpt-4o-mini", WithBaseURL(server.URL+"/v1"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are a hiring manager."},
		{Role: "user", Content: "- user: I like Go."},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "Solid fundamentals." {
		t.Fatalf("expected trimmed response, got %q", got)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply := openaiReply("")
		reply["choices"] = []map[string]any{}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	client, err := newOpenAIClient("test-key", "gpt-4o-mini", &clientOptions{baseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("newOpenAIClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if !errors.Is(err, ErrEmptyResponse) || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("expected no-choices ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIJSONResponseAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Title"); got != "Mock Interview AI" {
			t.Fatalf("expected X-Title header, got %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got != "https://mock.example" {
			t.Fatalf("expected HTTP-Referer header, got %q", got)
		}

		var req struct {
			Temperature    float32 `json:"temperature"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Fatalf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}
		if req.Temperature != 0.7 {
			t.Fatalf("expected temperature 0.7, got %v", req.Temperature)
		}

		_ = json.NewEncoder(w).Encode(openaiReply(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := NewClient("openrouter", "test-key", "openai/gpt-4o-mini",
		WithBaseURL(server.URL+"/v1"),
		WithHeaders(map[string]string{"HTTP-Referer": "https://mock.example", "X-Title": "Mock Interview AI"}),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "grade"}}, WithJSONResponse(), WithTemperature(0.7))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestOpenAIBlankContentIsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openaiReply("   "))
	}))
	defer server.Close()

	client, err := newOpenAIClient("test-key", "gpt-4o-mini", &clientOptions{baseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("newOpenAIClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
