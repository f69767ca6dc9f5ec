package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"
	"github.com/flowsight/flowsight-bfa/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(url string) *Backend {
	return &Backend{
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		BaseURL:    url,
		Breaker:    resilience.NewCircuitBreaker("test-backend"),
		Bulkhead:   resilience.NewBulkhead(4),
		Resilience: resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxConcurrency: 4},
	}
}

func staticToken(token string) port.TokenSource {
	return port.TokenSourceFunc(func(context.Context) (string, bool) {
		return token, token != ""
	})
}

func TestProjectionClient_GetProjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cashflow-projection", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("months"))
		assert.Equal(t, "true", r.URL.Query().Get("onlyChanges"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2024-01-05","income":300000,"expense":100000,"balance":500000,"details":[{"type":"income","description":"給与","amount":300000}]},
			{"date":"2024-02-03","income":0,"expense":0,"balance":500000}
		]`))
	}))
	defer srv.Close()

	c := NewProjectionClient(newTestBackend(srv.URL), staticToken("tok-1"))
	days, err := c.GetProjection(context.Background(), domain.ProjectionParams{Months: 12, OnlyChanges: true})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, domain.NewDate(2024, time.January, 5), days[0].Date)
	assert.Equal(t, int64(500000), days[0].Balance)
	require.Len(t, days[0].Details, 1)
	assert.Equal(t, domain.DetailIncome, days[0].Details[0].Type)
}

func TestProjectionClient_NullBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	c := NewProjectionClient(newTestBackend(srv.URL), staticToken("tok"))
	days, err := c.GetProjection(context.Background(), domain.ProjectionParams{Months: 6})
	require.NoError(t, err)
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestProjectionClient_NoToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewProjectionClient(newTestBackend(srv.URL), staticToken(""))
	_, err := c.GetProjection(context.Background(), domain.ProjectionParams{Months: 6})

	var unauthorized *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauthorized)
	assert.Zero(t, calls.Load())
}

func TestProjectionClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var target *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &target)
		}},
		{http.StatusNotFound, func(t *testing.T, err error) {
			var target *domain.ErrNotFound
			assert.ErrorAs(t, err, &target)
		}},
		{http.StatusBadGateway, func(t *testing.T, err error) {
			var target *domain.ErrUpstreamStatus
			require.ErrorAs(t, err, &target)
			assert.Equal(t, http.StatusBadGateway, target.StatusCode)
		}},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewProjectionClient(newTestBackend(srv.URL), staticToken("tok"))
			_, err := c.GetProjection(context.Background(), domain.ProjectionParams{Months: 6})
			require.Error(t, err)

			var external *domain.ErrExternalService
			require.ErrorAs(t, err, &external)
			tt.check(t, err)
		})
	}
}

func TestProjectionClient_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewProjectionClient(newTestBackend(srv.URL), staticToken("tok"))
	_, err := c.GetProjection(context.Background(), domain.ProjectionParams{Months: 6})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProjectionClient_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewProjectionClient(newTestBackend(srv.URL), staticToken("tok"))
	params := domain.ProjectionParams{Months: 6}
	for i := 0; i < 5; i++ {
		_, _ = c.GetProjection(context.Background(), params)
	}

	_, err := c.GetProjection(context.Background(), params)
	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
}

func TestAuthClient_GetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"u-1","email":"a@example.com","name":"Aki","picture":""}`))
	}))
	defer srv.Close()

	user, err := NewAuthClient(newTestBackend(srv.URL)).GetMe(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "a@example.com", user.Email)
}

func TestAuthClient_RetriesFirstLoginRace(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"sql: no rows in result set"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"u-1","email":"a@example.com"}`))
	}))
	defer srv.Close()

	user, err := NewAuthClient(newTestBackend(srv.URL)).GetMe(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAuthClient_OtherFailuresAreNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", status)
		}))

		_, err := NewAuthClient(newTestBackend(srv.URL)).GetMe(context.Background(), "tok")
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		if status == http.StatusUnauthorized {
			var unauthorized *domain.ErrUnauthorized
			assert.True(t, errors.As(err, &unauthorized))
		}
	}
}

func TestHealthClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	h := NewHealthClient(newTestBackend(srv.URL)).Check(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "backend-api", h.Name)

	srv.Close()
	h = NewHealthClient(newTestBackend(srv.URL)).Check(context.Background())
	assert.Equal(t, "unhealthy", h.Status)
}
