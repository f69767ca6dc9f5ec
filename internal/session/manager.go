// Package session owns the browser's authentication state. A bearer token
// is resolved once into a cached Session and torn down on logout; the rest
// of the BFA only sees the token through the context capability.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/cache"
	"github.com/flowsight/flowsight-bfa/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

var tracer = otel.Tracer("session")

// Claims are the claims the backend puts in its access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	// Secret verifies HS256 signatures when set. Without it tokens are
	// parsed unverified and the backend remains the authority.
	Secret string
	// MaxTTL caps a session's lifetime even when the token lives longer.
	MaxTTL time.Duration
	// SecureCookie marks the auth cookie Secure.
	SecureCookie bool
}

// Manager resolves bearer tokens into sessions.
type Manager struct {
	users    port.UserFetcher
	sessions *cache.InMemory[*domain.Session]
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a session manager backed by sessions.
func NewManager(users port.UserFetcher, sessions *cache.InMemory[*domain.Session], opts Options, logger *zap.Logger) *Manager {
	if opts.MaxTTL <= 0 {
		opts.MaxTTL = time.Hour
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve returns the session for token. It never fails: an empty, expired
// or rejected token yields an anonymous session.
func (m *Manager) Resolve(ctx context.Context, token string) *domain.Session {
	if token == "" {
		return domain.AnonymousSession()
	}

	key := HashToken(token)
	if s, ok := m.sessions.Get(key); ok {
		if !s.Expired(m.now()) {
			return s
		}
		m.sessions.Delete(key)
	}

	s, err := m.Login(ctx, token)
	if err != nil {
		m.logger.Info("session: token discarded", zap.Error(err))
		return domain.AnonymousSession()
	}
	return s
}

// Login initializes a session for token: its expiry is read from the JWT
// and its user is fetched from the backend.
func (m *Manager) Login(ctx context.Context, token string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Manager.Login")
	defer span.End()

	if token == "" {
		return nil, &domain.ErrUnauthorized{Message: "token is required"}
	}

	now := m.now()
	expiresAt, err := m.tokenExpiry(token, now)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetMe(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}

	s := domain.NewAuthenticatedSession(token, user, expiresAt)
	m.sessions.SetWithTTL(HashToken(token), s, expiresAt.Sub(now))

	m.logger.Info("session established",
		zap.String("user_id", user.ID),
		zap.Time("expires_at", expiresAt),
	)
	return s, nil
}

// Logout tears the session down. Unknown tokens are ignored.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.sessions.Delete(HashToken(token))
}

// tokenExpiry returns when a session for token must end: the JWT exp claim
// or now+MaxTTL, whichever is sooner.
func (m *Manager) tokenExpiry(token string, now time.Time) (time.Time, error) {
	claims := &Claims{}

	if m.opts.Secret != "" {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return []byte(m.opts.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return time.Time{}, &domain.ErrUnauthorized{Message: "token expired"}
			}
			return time.Time{}, &domain.ErrUnauthorized{Message: "invalid token"}
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, &domain.ErrUnauthorized{Message: "malformed token"}
	}

	expiresAt := now.Add(m.opts.MaxTTL)
	if claims.ExpiresAt != nil {
		if !claims.ExpiresAt.After(now) {
			return time.Time{}, &domain.ErrUnauthorized{Message: "token expired"}
		}
		if claims.ExpiresAt.Before(expiresAt) {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	return expiresAt, nil
}

// HashToken derives the cache key for a bearer token so raw tokens are
// never used as map keys or logged.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
