package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"
	"github.com/flowsight/flowsight-bfa/internal/port"

	"go.opentelemetry.io/otel/attribute"
)

const projectionService = "cashflow-projection"

// ProjectionClient fetches the daily cashflow projection.
type ProjectionClient struct {
	backend *Backend
	tokens  port.TokenSource
	cfg     resilience.Config
}

// NewProjectionClient creates a ProjectionClient. The bearer token of each
// call comes from tokens. Projection fetches are never retried: a failure
// is reported to the user, who can trigger the fetch again.
func NewProjectionClient(backend *Backend, tokens port.TokenSource) *ProjectionClient {
	return &ProjectionClient{
		backend: backend,
		tokens:  tokens,
		cfg:     backend.Resilience.NoRetry(),
	}
}

// GetProjection calls GET /api/v1/cashflow-projection?months=N&onlyChanges=B.
func (c *ProjectionClient) GetProjection(ctx context.Context, params domain.ProjectionParams) ([]domain.DailyProjection, error) {
	ctx, span := tracer.Start(ctx, "ProjectionClient.GetProjection")
	defer span.End()
	span.SetAttributes(
		attribute.Int("projection.months", params.Months),
		attribute.Bool("projection.only_changes", params.OnlyChanges),
	)

	token, ok := c.tokens.BearerToken(ctx)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "no bearer token for projection fetch"}
	}

	query := url.Values{}
	query.Set("months", strconv.Itoa(params.Months))
	query.Set("onlyChanges", strconv.FormatBool(params.OnlyChanges))

	result, err := c.backend.guard(ctx, projectionService, func() (any, error) {
		var days []domain.DailyProjection
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := c.backend.newRequest(ctx, http.MethodGet, "/cashflow-projection?"+query.Encode(), token)
			if err != nil {
				return err
			}

			resp, err := c.backend.HTTPClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return statusError(resp, "cashflow projection")
			}

			return json.NewDecoder(resp.Body).Decode(&days)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		if days == nil {
			days = []domain.DailyProjection{}
		}
		return days, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: projectionService, Err: err}
	}

	days := result.([]domain.DailyProjection)
	span.SetAttributes(attribute.Int("projection.days", len(days)))
	return days, nil
}
