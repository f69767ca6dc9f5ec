// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the backend API clients and the session store.
package port

import (
	"context"

	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// ProjectionFetcher retrieves the daily cashflow projection from the backend.
type ProjectionFetcher interface {
	GetProjection(ctx context.Context, params domain.ProjectionParams) ([]domain.DailyProjection, error)
}

// UserFetcher resolves the user behind a bearer token.
type UserFetcher interface {
	GetMe(ctx context.Context, token string) (*domain.User, error)
}

// TokenSource is the only thing the fetch path knows about authentication:
// the bearer token of the current request, if any.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

func (f TokenSourceFunc) BearerToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
