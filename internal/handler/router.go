package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/observability"
	"github.com/flowsight/flowsight-bfa/internal/service"
	"github.com/flowsight/flowsight-bfa/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("handler")

// HealthChecker probes one dependency for /healthz and /readyz.
type HealthChecker interface {
	Check(ctx context.Context) domain.ServiceHealth
}

// Options configures the browser-facing edge of the router.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	DefaultMonths  int
	// BackendURL enables the authenticated /api/v1 pass-through when set.
	BackendURL *url.URL
	Health     []HealthChecker
}

// NewRouter creates the HTTP router with all routes and middleware.
// Cashflow and session routes are mounted only when their services are given.
func NewRouter(cashflowSvc *service.CashflowService, sessions *session.Manager, metrics *observability.Metrics, opts Options, logger *zap.Logger) http.Handler {
	if opts.DefaultMonths == 0 {
		opts.DefaultMonths = domain.DefaultHorizonMonths
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if opts.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware(logger))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.Health))
	r.Get("/readyz", readyzHandler(opts.Health))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if sessions == nil {
		r.Get("/v1/metrics/cashflow", cashflowMetricsHandler(metrics))
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		// OAuth landing page: the backend redirects here with the token.
		r.Get("/auth/callback", authCallbackHandler(sessions, logger))

		r.Route("/v1", func(r chi.Router) {
			// =============================================
			// Session
			// =============================================
			r.Get("/session", getSessionHandler())
			r.Post("/session", loginHandler(sessions, logger))
			r.Delete("/session", logoutHandler(sessions, cashflowSvc))

			// =============================================
			// Metrics
			// =============================================
			r.Get("/metrics/cashflow", cashflowMetricsHandler(metrics))

			// =============================================
			// Cashflow projection
			// =============================================
			if cashflowSvc != nil {
				r.Group(func(r chi.Router) {
					r.Use(sessions.RequireAuth)
					r.Get("/cashflow/projection", loadProjectionHandler(cashflowSvc, opts.DefaultMonths, logger))
					r.Get("/cashflow/projection/current", currentProjectionHandler(cashflowSvc, logger))
					r.Get("/cashflow/chart.svg", chartHandler(cashflowSvc, opts.DefaultMonths, logger))
					r.Get("/cashflow/export.csv", exportHandler(cashflowSvc, opts.DefaultMonths, logger))
				})
			}
		})

		// =============================================
		// Backend pass-through (settings and CRUD pages)
		// =============================================
		if opts.BackendURL != nil {
			proxy := newBackendProxy(opts.BackendURL, logger)
			// The OAuth entry points must be reachable before login.
			r.Handle("/api/v1/auth/*", proxy)
			r.Group(func(r chi.Router) {
				r.Use(sessions.RequireAuth)
				r.Handle("/api/v1/*", proxy)
			})
		}
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func checkAll(ctx context.Context, checks []HealthChecker) []domain.ServiceHealth {
	services := make([]domain.ServiceHealth, len(checks)+1)
	services[0] = domain.ServiceHealth{Name: "bfa-api", Status: "healthy", LastChecked: time.Now().Format(time.RFC3339)}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			services[i+1] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return services
}

func overallStatus(services []domain.ServiceHealth) string {
	status := "healthy"
	for _, s := range services {
		if s.Status == "unhealthy" {
			return "unhealthy"
		}
		if s.Status == "degraded" {
			status = "degraded"
		}
	}
	return status
}

func healthzHandler(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := checkAll(r.Context(), checks)
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus(services),
			Services: services,
		})
	}
}

func readyzHandler(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := checkAll(r.Context(), checks)
		if overallStatus(services) == "unhealthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "services": services})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func cashflowMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
