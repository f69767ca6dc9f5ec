// Package client holds the HTTP clients for the Flow Sight backend API.
// Every call runs behind the shared circuit breaker and bulkhead and is traced.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("client")

const (
	apiPrefix    = "/api/v1"
	maxErrorBody = 4 << 10
)

// Backend bundles what every backend client needs.
type Backend struct {
	HTTPClient *http.Client
	BaseURL    string
	Breaker    *gobreaker.CircuitBreaker
	Bulkhead   *resilience.Bulkhead
	Resilience resilience.Config
}

// guard runs fn under the bulkhead and circuit breaker and maps breaker
// and deadline failures to domain errors.
func (b *Backend) guard(ctx context.Context, service string, fn func() (any, error)) (any, error) {
	if b.Bulkhead != nil {
		if err := b.Bulkhead.Acquire(ctx); err != nil {
			return nil, &domain.ErrTimeout{Operation: service}
		}
		defer b.Bulkhead.Release()
	}

	result, err := b.Breaker.Execute(fn)
	switch {
	case err == nil:
		return result, nil
	case resilience.IsBreakerRejection(err):
		return nil, &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &domain.ErrTimeout{Operation: service}
	default:
		return nil, err
	}
}

func (b *Backend) newRequest(ctx context.Context, method, path, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+apiPrefix+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// statusError maps a non-200 backend response. Caller errors are marked
// permanent so they are never retried.
func statusError(resp *http.Response, resource string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return resilience.Permanent(&domain.ErrUnauthorized{
			Message: fmt.Sprintf("%s: backend rejected the token (%d)", resource, resp.StatusCode),
		})
	case http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: resp.Request.URL.Path})
	case http.StatusBadRequest:
		return resilience.Permanent(&domain.ErrValidation{Field: resource, Message: string(body)})
	default:
		return &domain.ErrUpstreamStatus{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
