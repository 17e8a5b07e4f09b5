package llm

import (
	"strings"
	"testing"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		input        string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{input: "openai/gpt-4o-mini", wantProvider: "openai", wantModel: "gpt-4o-mini"},
		{input: "openrouter/openai/gpt-4o-mini", wantProvider: "openrouter", wantModel: "openai/gpt-4o-mini"},
		{input: "gemini/gemini-2.0-flash", wantProvider: "gemini", wantModel: "gemini-2.0-flash"},
		{input: "gpt-4o-mini", wantErr: true},
		{input: "/gpt-4o-mini", wantErr: true},
		{input: "anthropic/", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		provider, model, err := ParseModel(tt.input)
		if tt.wantErr {
			if err == nil || !strings.Contains(err.Error(), "expected provider/model_name") {
				t.Fatalf("ParseModel(%q): expected format error, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseModel(%q) returned error: %v", tt.input, err)
		}
		if provider != tt.wantProvider || model != tt.wantModel {
			t.Fatalf("ParseModel(%q) = (%q, %q), want (%q, %q)", tt.input, provider, model, tt.wantProvider, tt.wantModel)
		}
	}
}

func TestNewClientProviders(t *testing.T) {
	for _, provider := range []string{"openai", "openrouter", "anthropic", "gemini"} {
		client, err := NewClient(provider, "test-key", "some-model")
		if err != nil {
			t.Fatalf("NewClient(%q) failed: %v", provider, err)
		}
		if client == nil {
			t.Fatalf("NewClient(%q) returned nil client", provider)
		}
	}

	client, err := NewClient("mistral", "test-key", "some-model")
	if err == nil || !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client, got %#v", client)
	}
}

func TestWithHeadersMerges(t *testing.T) {
	var o clientOptions
	WithHeaders(map[string]string{"HTTP-Referer": "https://mock.example"})(&o)
	WithHeaders(map[string]string{"X-Title": "Mock Interview AI"})(&o)
	WithHeaders(nil)(&o)

	if len(o.headers) != 2 || o.headers["X-Title"] != "Mock Interview AI" || o.headers["HTTP-Referer"] != "https://mock.example" {
		t.Fatalf("unexpected headers %#v", o.headers)
	}
}
