// Package auth resolves the caller's identity from headers set by a trusted
// reverse proxy.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrUnauthenticated = errors.New("unauthenticated")

const (
	DefaultUserHeader = "X-User-ID"
	DefaultNameHeader = "X-User-Name"
)

type Identity struct {
	UserID string
	Name   string
}

type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// HeaderAuthenticator trusts the user id header unconditionally. Only deploy
// it behind a proxy that strips client-supplied copies.
type HeaderAuthenticator struct {
	UserHeader string
	NameHeader string
}

func NewHeaderAuthenticator(userHeader string) *HeaderAuthenticator {
	if strings.TrimSpace(userHeader) == "" {
		userHeader = DefaultUserHeader
	}
	return &HeaderAuthenticator{UserHeader: userHeader, NameHeader: DefaultNameHeader}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(a.UserHeader))
	if userID == "" {
		return Identity{}, ErrUnauthenticated
	}

	name := ""
	if a.NameHeader != "" {
		name = strings.TrimSpace(r.Header.Get(a.NameHeader))
	}
	return Identity{UserID: userID, Name: name}, nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}
