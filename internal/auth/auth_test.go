package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticateMissingHeader(t *testing.T) {
	a := NewHeaderAuthenticator("")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := a.Authenticate(req); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticateBlankHeader(t *testing.T) {
	a := NewHeaderAuthenticator("")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultUserHeader, "   ")

	if _, err := a.Authenticate(req); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticateDefaultHeaders(t *testing.T) {
	a := NewHeaderAuthenticator("")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-User-Name", "Ada")

	id, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "user-1" || id.Name != "Ada" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthenticateCustomHeader(t *testing.T) {
	a := NewHeaderAuthenticator("X-Forwarded-User")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-User", "proxy-user")
	req.Header.Set("X-User-ID", "ignored")

	id, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "proxy-user" {
		t.Fatalf("expected custom header to win, got %q", id.UserID)
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}

	ctx := WithIdentity(context.Background(), Identity{UserID: "user-1"})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != "user-1" {
		t.Fatalf("unexpected identity from context: %+v, %v", id, ok)
	}
}
