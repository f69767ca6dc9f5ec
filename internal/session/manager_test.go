package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/cache"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakeUsers struct {
	calls atomic.Int32
	err   error
}

func (f *fakeUsers) GetMe(_ context.Context, token string) (*domain.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: "u-1", Email: "a@example.com", Name: "Aki"}, nil
}

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: "u-1",
		Email:  "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newTestManager(t *testing.T, users *fakeUsers, opts Options) *Manager {
	t.Helper()
	sessions := cache.New[*domain.Session](time.Minute)
	t.Cleanup(sessions.Close)
	return NewManager(users, sessions, opts, zap.NewNop())
}

func TestResolve_EmptyTokenIsAnonymous(t *testing.T) {
	users := &fakeUsers{}
	m := newTestManager(t, users, Options{})

	s := m.Resolve(context.Background(), "")
	assert.False(t, s.Authenticated())
	assert.Equal(t, domain.SessionAnonymous, s.State)
	assert.Zero(t, users.calls.Load())
}

func TestResolve_CachesSession(t *testing.T) {
	users := &fakeUsers{}
	m := newTestManager(t, users, Options{Secret: testSecret})
	token := signToken(t, testSecret, time.Now().Add(30*time.Minute))

	first := m.Resolve(context.Background(), token)
	second := m.Resolve(context.Background(), token)

	require.True(t, first.Authenticated())
	assert.Same(t, first, second)
	assert.Equal(t, "u-1", second.User.ID)
	assert.Equal(t, int32(1), users.calls.Load())
}

func TestLogin_ExpiryIsCappedByMaxTTL(t *testing.T) {
	m := newTestManager(t, &fakeUsers{}, Options{Secret: testSecret, MaxTTL: time.Hour})

	long, err := m.Login(context.Background(), signToken(t, testSecret, time.Now().Add(5*time.Hour)))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), long.ExpiresAt, 5*time.Second)

	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	short, err := m.Login(context.Background(), signToken(t, testSecret, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(short.ExpiresAt))
}

func TestLogin_RejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string { return signToken(t, testSecret, time.Now().Add(-time.Minute)) }},
		{"wrong secret", func(t *testing.T) string { return signToken(t, "other", time.Now().Add(time.Hour)) }},
		{"garbage", func(*testing.T) string { return "not-a-jwt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{}
			m := newTestManager(t, users, Options{Secret: testSecret})

			_, err := m.Login(context.Background(), tt.token(t))
			var unauthorized *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &unauthorized)
			assert.Zero(t, users.calls.Load())
		})
	}
}

func TestLogin_UnverifiedWithoutSecret(t *testing.T) {
	m := newTestManager(t, &fakeUsers{}, Options{})

	s, err := m.Login(context.Background(), signToken(t, "backend-only-secret", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, s.Authenticated())

	_, err = m.Login(context.Background(), signToken(t, "backend-only-secret", time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

func TestResolve_UserFetchFailureIsAnonymous(t *testing.T) {
	users := &fakeUsers{err: errors.New("backend down")}
	m := newTestManager(t, users, Options{})

	s := m.Resolve(context.Background(), signToken(t, testSecret, time.Now().Add(time.Hour)))
	assert.False(t, s.Authenticated())
}

func TestResolve_ExpiredCachedSessionIsReinitialized(t *testing.T) {
	users := &fakeUsers{}
	m := newTestManager(t, users, Options{})
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	require.True(t, m.Resolve(context.Background(), token).Authenticated())

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, m.Resolve(context.Background(), token).Authenticated())
	assert.Equal(t, int32(1), users.calls.Load())
}

func TestLogout(t *testing.T) {
	users := &fakeUsers{}
	m := newTestManager(t, users, Options{})
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	m.Resolve(context.Background(), token)
	m.Logout(token)
	m.Logout("")
	m.Resolve(context.Background(), token)

	assert.Equal(t, int32(2), users.calls.Load())
}

func TestHashToken(t *testing.T) {
	assert.Len(t, HashToken("abc"), 64)
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t, &fakeUsers{}, Options{})
	token := signToken(t, testSecret, time.Now().Add(time.Hour))

	var got string
	var ok bool
	h := m.Middleware(m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = Tokens.BearerToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, ok)
		assert.Equal(t, token, got)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("discarded cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieName, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestFromContext_DefaultsToAnonymous(t *testing.T) {
	_, ok := BearerToken(context.Background())
	assert.False(t, ok)
	assert.Equal(t, domain.SessionAnonymous, FromContext(context.Background()).State)
}
