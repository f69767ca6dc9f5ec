package client

import (
	"context"
	"net/http"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// HealthClient probes the backend's public health endpoint.
type HealthClient struct {
	backend *Backend
}

// NewHealthClient creates a HealthClient.
func NewHealthClient(backend *Backend) *HealthClient {
	return &HealthClient{backend: backend}
}

// Check calls GET /api/v1/health and reports its latency. It bypasses the
// circuit breaker so probes do not skew it.
func (c *HealthClient) Check(ctx context.Context) domain.ServiceHealth {
	ctx, span := tracer.Start(ctx, "HealthClient.Check")
	defer span.End()

	start := time.Now()
	status := "healthy"

	req, err := c.backend.newRequest(ctx, http.MethodGet, "/health", "")
	if err == nil {
		var resp *http.Response
		resp, err = c.backend.HTTPClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				status = "degraded"
			}
		}
	}
	if err != nil {
		status = "unhealthy"
	}

	return domain.ServiceHealth{
		Name:        "backend-api",
		Status:      status,
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: time.Now().Format(time.RFC3339),
	}
}
