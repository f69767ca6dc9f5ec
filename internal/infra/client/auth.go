package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"
)

const authService = "auth"

// The backend can answer /auth/me with this 500 right after a first login,
// before the user row is visible. It clears up on its own.
const firstLoginRace = "no rows in result set"

// AuthClient resolves bearer tokens to users.
type AuthClient struct {
	backend *Backend
	cfg     resilience.Config
}

// NewAuthClient creates an AuthClient. Network errors and the first-login
// race are retried with backoff; everything else fails at once.
func NewAuthClient(backend *Backend) *AuthClient {
	return &AuthClient{backend: backend, cfg: backend.Resilience}
}

// GetMe calls GET /api/v1/auth/me with the given token.
func (c *AuthClient) GetMe(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthClient.GetMe")
	defer span.End()

	var user domain.User

	_, err := c.backend.guard(ctx, authService, func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.backend.newRequest(ctx, http.MethodGet, "/auth/me", token)
			if err != nil {
				return resilience.Permanent(err)
			}

			resp, err := c.backend.HTTPClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
					return resilience.Permanent(err)
				}
				return nil
			case resp.StatusCode == http.StatusInternalServerError:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				statusErr := &domain.ErrUpstreamStatus{StatusCode: resp.StatusCode, Body: string(body)}
				if strings.Contains(string(body), firstLoginRace) {
					return statusErr
				}
				return resilience.Permanent(statusErr)
			default:
				return resilience.Permanent(statusError(resp, "user"))
			}
		})
		return nil, innerErr
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: authService, Err: err}
	}
	return &user, nil
}
