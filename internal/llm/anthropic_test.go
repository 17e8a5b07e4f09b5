package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func anthropicReply(text string) map[string]any {
	return map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-3-5-haiku-latest",
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": "",
		"usage":         map[string]any{"input_tokens": 12, "output_tokens": 4},
	}
}

func TestAnthropicCompleteMapsRoles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")

		var req struct {
			Model       string   `json:"model"`
			Temperature *float64 `json:"temperature"`
			System      []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Model != "claude-3-5-haiku-latest" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		if req.Temperature == nil || *req.Temperature < 0.69 || *req.Temperature > 0.71 {
			t.Fatalf("expected temperature 0.7, got %v", req.Temperature)
		}
		if len(req.System) != 1 || req.System[0].Text != "You are a hiring manager." {
			t.Fatalf("expected system prompt in top-level system field, got %#v", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "user" || req.Messages[1].Role != "assistant" {
			t.Fatalf("unexpected chat messages: %#v", req.Messages)
		}

		reply := anthropicReply("")
		reply["content"] = []map[string]any{
			{"type": "text", "text": " Strong answer "},
			{"type": "text", "text": "overall."},
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-latest", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You are a hiring manager."},
		{Role: "user", Content: "Tell me about a project you led."},
		{Role: "assistant", Content: "I led the billing migration."},
	}, WithTemperature(0.7))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "Strong answer overall." {
		t.Fatalf("expected joined trimmed text, got %q", got)
	}
}

func TestAnthropicEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		reply := anthropicReply("")
		reply["content"] = []map[string]any{}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	client, err := newAnthropicClient("test-key", "claude-3-5-haiku-latest", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "- user: hello"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAnthropicJSONModeAppendsInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if got := r.Header.Get("X-Title"); got != "Mock Interview AI" {
			t.Fatalf("expected X-Title header, got %q", got)
		}
		var req struct {
			MaxTokens int64 `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens != 8192 {
			t.Fatalf("expected max_tokens 8192, got %d", req.MaxTokens)
		}
		if len(req.System) != 2 || req.System[0].Text != "grade the interview" || req.System[1].Text != jsonOnlyInstruction {
			t.Fatalf("expected JSON instruction after system prompt, got %#v", req.System)
		}

		_ = json.NewEncoder(w).Encode(anthropicReply(`{"totalScore":70}`))
	}))
	defer server.Close()

	client, err := NewClient("anthropic", "test-key", "claude-3-5-haiku-latest",
		WithBaseURL(server.URL),
		WithHeaders(map[string]string{"X-Title": "Mock Interview AI"}),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "grade the interview"},
		{Role: "user", Content: "- user: hello"},
	}, WithJSONResponse())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"totalScore":70}` {
		t.Fatalf("unexpected response %q", got)
	}
}
