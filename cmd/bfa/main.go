package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/config"
	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/handler"
	"github.com/flowsight/flowsight-bfa/internal/infra/cache"
	"github.com/flowsight/flowsight-bfa/internal/infra/client"
	"github.com/flowsight/flowsight-bfa/internal/infra/observability"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"
	"github.com/flowsight/flowsight-bfa/internal/service"
	"github.com/flowsight/flowsight-bfa/internal/session"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_api_url", cfg.BackendAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("view_ttl", cfg.ViewTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("jwt_verification", cfg.JWTSecret != ""),
		zap.Int("default_months", cfg.DefaultMonths),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "flowsight-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	sessionCache := cache.New[*domain.Session](cfg.SessionTTL)
	defer sessionCache.Close()
	projectionCache := cache.New[[]domain.DailyProjection](cfg.CacheTTL)
	defer projectionCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	backend := &client.Backend{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		BaseURL:    cfg.BackendAPIURL,
		Breaker:    resilience.NewCircuitBreaker("backend-api"),
		Bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		Resilience: resilienceCfg,
	}

	// --- Clients ---
	projectionClient := client.NewProjectionClient(backend, session.Tokens)
	authClient := client.NewAuthClient(backend)
	healthClient := client.NewHealthClient(backend)

	// --- Services ---
	sessions := session.NewManager(authClient, sessionCache, session.Options{
		Secret:       cfg.JWTSecret,
		MaxTTL:       cfg.SessionTTL,
		SecureCookie: cfg.CookieSecure,
	}, logger)

	cashflowSvc := service.NewCashflowService(
		projectionClient,
		session.Tokens,
		projectionCache,
		service.NewViewRegistry(cfg.ViewTTL),
		metrics,
		logger,
	)

	// --- Router ---
	backendURL, _ := url.Parse(cfg.BackendAPIURL)
	router := handler.NewRouter(cashflowSvc, sessions, metrics, handler.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		DefaultMonths:  cfg.DefaultMonths,
		BackendURL:     backendURL,
		Health:         []handler.HealthChecker{healthClient},
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
