package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusErrorMatchesSentinels(t *testing.T) {
	tests := []struct {
		status       int
		rateLimited  bool
		unauthorized bool
	}{
		{status: http.StatusTooManyRequests, rateLimited: true},
		{status: http.StatusUnauthorized, unauthorized: true},
		{status: http.StatusForbidden, unauthorized: true},
		{status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &StatusError{Provider: "test", StatusCode: tt.status, Err: errors.New("boom")})
		if got := errors.Is(err, ErrRateLimited); got != tt.rateLimited {
			t.Fatalf("status %d: ErrRateLimited match = %v, want %v", tt.status, got, tt.rateLimited)
		}
		if got := errors.Is(err, ErrUnauthorized); got != tt.unauthorized {
			t.Fatalf("status %d: ErrUnauthorized match = %v, want %v", tt.status, got, tt.unauthorized)
		}
	}
}

func TestOpenAIStatusClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient("test-key", "gpt-4o-mini", &clientOptions{baseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("newOpenAIClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Provider != "openai" {
		t.Fatalf("expected openai StatusError, got %#v", err)
	}
}

func TestAnthropicStatusClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient("bad-key", "claude-3-5-haiku-latest", &clientOptions{baseURL: server.URL})
	if err != nil {
		t.Fatalf("newAnthropicClient failed: %v", err)
	}

	_, err = client.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
