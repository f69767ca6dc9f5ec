package session

import (
	"context"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/port"
)

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, anonymous when none was stored.
func FromContext(ctx context.Context) *domain.Session {
	if s, ok := ctx.Value(contextKey{}).(*domain.Session); ok && s != nil {
		return s
	}
	return domain.AnonymousSession()
}

// BearerToken is the authentication capability handed to the fetch path.
func BearerToken(ctx context.Context) (string, bool) {
	s := FromContext(ctx)
	if !s.Authenticated() {
		return "", false
	}
	return s.Token(), true
}

// Tokens exposes BearerToken as a port.TokenSource.
var Tokens port.TokenSource = port.TokenSourceFunc(BearerToken)
