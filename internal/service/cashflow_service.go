// Package service provides the business logic layer (use cases).
// CashflowService runs the recompute pipeline of the cashflow page:
// fetch, filter, aggregate, axis, totals and labels, applied to a
// browser's view with last-request-wins.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/cashflow"
	"github.com/flowsight/flowsight-bfa/internal/chart"
	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/observability"
	"github.com/flowsight/flowsight-bfa/internal/port"
	"github.com/flowsight/flowsight-bfa/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/cashflow")

const projectionCache = "projection"

// CashflowService orchestrates projection loads, chart rendering and CSV export.
type CashflowService struct {
	fetcher port.ProjectionFetcher
	tokens  port.TokenSource
	cache   port.Cache[[]domain.DailyProjection]
	views   *ViewRegistry
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCashflowService creates the cashflow service with all dependencies injected.
func NewCashflowService(
	fetcher port.ProjectionFetcher,
	tokens port.TokenSource,
	cache port.Cache[[]domain.DailyProjection],
	views *ViewRegistry,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CashflowService {
	return &CashflowService{
		fetcher: fetcher,
		tokens:  tokens,
		cache:   cache,
		views:   views,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Load fetches the projection for params and applies it to the view.
//
// Each load takes a sequence number from the view's counter. The result is
// applied only if no newer load started meanwhile; otherwise the load gets
// ErrSuperseded and the newer state is left alone. A failed fetch leaves
// the view untouched and returns ErrFetchFailed carrying it.
func (s *CashflowService) Load(ctx context.Context, viewID string, params domain.ProjectionParams) (*domain.ProjectionView, error) {
	ctx, span := tracer.Start(ctx, "CashflowService.Load")
	defer span.End()
	span.SetAttributes(
		attribute.Int("projection.months", params.Months),
		attribute.Bool("projection.only_changes", params.OnlyChanges),
	)

	start := s.now()
	defer func() {
		s.metrics.RecordRequestDuration("cashflow_load", time.Since(start))
	}()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	view := s.views.Get(viewID)
	seq := view.Begin()
	span.SetAttributes(attribute.Int64("view.seq", int64(seq)))

	days, err := s.fetch(ctx, params)
	if err != nil {
		if latest := view.Latest(); latest != seq {
			s.metrics.IncrLoad(observability.LoadSuperseded)
			return nil, &domain.ErrSuperseded{ViewID: viewID, Seq: seq, Latest: latest}
		}
		s.metrics.IncrLoad(observability.LoadFailed)
		s.logger.Error("projection fetch failed",
			zap.Int("months", params.Months),
			zap.Uint64("seq", seq),
			zap.Error(err),
		)
		return nil, &domain.ErrFetchFailed{Err: err, Stale: view.Current()}
	}

	result := BuildView(days, params, s.now())
	result.Seq = seq

	if !view.Apply(seq, result) {
		latest := view.Latest()
		s.metrics.IncrLoad(observability.LoadSuperseded)
		s.logger.Debug("projection load superseded",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", latest),
		)
		return nil, &domain.ErrSuperseded{ViewID: viewID, Seq: seq, Latest: latest}
	}

	s.metrics.IncrLoad(observability.LoadApplied)
	return result, nil
}

// Current returns the view last applied for viewID.
func (s *CashflowService) Current(viewID string) (*domain.ProjectionView, error) {
	if v := s.views.Peek(viewID); v != nil {
		if current := v.Current(); current != nil {
			return current, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "cashflow view", ID: viewID}
}

// Export renders the raw daily sequence as CSV and names the download.
// A nil params exports what the view currently shows, loading the default
// horizon when nothing is shown yet. Empty data is refused with ErrNoData.
func (s *CashflowService) Export(ctx context.Context, viewID string, params *domain.ProjectionParams, defaults domain.ProjectionParams) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "CashflowService.Export")
	defer span.End()

	days, _, err := s.resolve(ctx, viewID, params, defaults)
	if err != nil {
		return nil, "", err
	}

	data, err := cashflow.ExportCSV(days)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			s.metrics.IncrExport(observability.ExportRefused)
		}
		return nil, "", err
	}

	s.metrics.IncrExport(observability.ExportOK)
	s.logger.Info("csv exported", zap.Int("rows", len(days)))
	return data, cashflow.ExportFilename(s.now()), nil
}

// Chart renders the monthly roll-up as SVG. params follows Export.
func (s *CashflowService) Chart(ctx context.Context, viewID string, params *domain.ProjectionParams, defaults domain.ProjectionParams, theme chart.Theme) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "CashflowService.Chart")
	defer span.End()

	days, used, err := s.resolve(ctx, viewID, params, defaults)
	if err != nil {
		return nil, err
	}

	opts := chart.DefaultOptions()
	opts.Subtitle = Subtitle(used.Months)
	opts.Theme = theme

	var buf bytes.Buffer
	if err := chart.RenderSVG(&buf, cashflow.AggregateMonthly(days), opts); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// resolve picks the daily sequence for Export and Chart. It does not touch
// the view.
func (s *CashflowService) resolve(ctx context.Context, viewID string, params *domain.ProjectionParams, defaults domain.ProjectionParams) ([]domain.DailyProjection, domain.ProjectionParams, error) {
	if params == nil {
		if current, err := s.Current(viewID); err == nil {
			return current.Daily, current.Params, nil
		}
		params = &defaults
	}
	if err := params.Validate(); err != nil {
		return nil, *params, err
	}

	days, err := s.fetch(ctx, *params)
	if err != nil {
		return nil, *params, &domain.ErrFetchFailed{Err: err}
	}
	return days, *params, nil
}

// fetch returns the (filtered) daily sequence for params, consulting the
// per-user response cache first.
func (s *CashflowService) fetch(ctx context.Context, params domain.ProjectionParams) ([]domain.DailyProjection, error) {
	token, ok := s.tokens.BearerToken(ctx)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "ログインが必要です"}
	}

	cacheKey := fmt.Sprintf("projection:%s:%d:%t", session.HashToken(token), params.Months, params.OnlyChanges)
	if days, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit(projectionCache)
		return days, nil
	}
	s.metrics.IncrCacheMiss(projectionCache)

	days, err := s.fetcher.GetProjection(ctx, params)
	if err != nil {
		s.metrics.IncrExternalError("cashflow-projection")
		return nil, err
	}
	if params.OnlyChanges {
		days = cashflow.FilterChanged(days)
	}

	s.cache.Set(cacheKey, days)
	return days, nil
}

// Forget drops a view, e.g. on logout.
func (s *CashflowService) Forget(viewID string) {
	s.views.Forget(viewID)
}
