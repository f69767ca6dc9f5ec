// Command flowsight-export downloads cashflow projections from the backend
// and writes them as CSV files, one per horizon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/cashflow"
	"github.com/flowsight/flowsight-bfa/internal/config"
	"github.com/flowsight/flowsight-bfa/internal/domain"
	"github.com/flowsight/flowsight-bfa/internal/infra/client"
	"github.com/flowsight/flowsight-bfa/internal/infra/observability"
	"github.com/flowsight/flowsight-bfa/internal/infra/resilience"
	"github.com/flowsight/flowsight-bfa/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	backendURL  string
	token       string
	horizons    []int
	onlyChanges bool
	outDir      string
	timeout     time.Duration
}

func main() {
	cfg, err := loadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := run(ctx, opts, newFetcher(opts, cfg), time.Now(), logger)
	for _, f := range files {
		fmt.Println(f)
	}
	if err != nil {
		logger.Error("export failed", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig reads dotenv into the environment, then the config. A missing
// file is fine, a malformed one is not.
func loadConfig(dotenv string) (*config.Config, error) {
	if err := config.LoadDotEnv(dotenv); err != nil {
		return nil, err
	}
	return config.Load(), nil
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("flowsight-export", flag.ContinueOnError)

	opts := options{}
	var horizons string
	fs.StringVar(&opts.backendURL, "backend", cfg.BackendAPIURL, "backend API base URL")
	fs.StringVar(&opts.token, "token", os.Getenv("FLOWSIGHT_TOKEN"), "bearer token (default $FLOWSIGHT_TOKEN)")
	fs.StringVar(&horizons, "months", strconv.Itoa(cfg.DefaultMonths), "comma-separated horizons in months, e.g. 6,12,24")
	fs.BoolVar(&opts.onlyChanges, "only-changes", false, "export only days with income or expense")
	fs.StringVar(&opts.outDir, "out", ".", "output directory")
	fs.DurationVar(&opts.timeout, "timeout", cfg.HTTPTimeout, "per-request timeout")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.token == "" {
		return options{}, errors.New("a bearer token is required (-token or FLOWSIGHT_TOKEN)")
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(horizons, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil {
			return options{}, fmt.Errorf("invalid horizon %q", part)
		}
		if err := (domain.ProjectionParams{Months: m}).Validate(); err != nil {
			return options{}, err
		}
		if !seen[m] {
			seen[m] = true
			opts.horizons = append(opts.horizons, m)
		}
	}
	if len(opts.horizons) == 0 {
		return options{}, errors.New("at least one horizon is required")
	}
	return opts, nil
}

func newFetcher(opts options, cfg *config.Config) port.ProjectionFetcher {
	backend := &client.Backend{
		HTTPClient: &http.Client{Timeout: opts.timeout},
		BaseURL:    strings.TrimRight(opts.backendURL, "/"),
		Breaker:    resilience.NewCircuitBreaker("backend-api"),
		Bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		Resilience: resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
	}
	token := opts.token
	return client.NewProjectionClient(backend, port.TokenSourceFunc(func(context.Context) (string, bool) {
		return token, true
	}))
}

// outputName is the browser download name for a single horizon and gains
// a horizon suffix when several are exported together.
func outputName(now time.Time, months int, multiple bool) string {
	name := cashflow.ExportFilename(now)
	if !multiple {
		return name
	}
	return strings.TrimSuffix(name, ".csv") + fmt.Sprintf("_%dm.csv", months)
}

// run fetches every horizon concurrently and writes one CSV per horizon.
// Written files are returned even when another horizon failed.
func run(ctx context.Context, opts options, fetcher port.ProjectionFetcher, now time.Time, logger *zap.Logger) ([]string, error) {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	written := make([]string, len(opts.horizons))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, months := range opts.horizons {
		g.Go(func() error {
			params := domain.ProjectionParams{Months: months, OnlyChanges: opts.onlyChanges}
			days, err := fetcher.GetProjection(gCtx, params)
			if err != nil {
				return fmt.Errorf("%d months: %w", months, err)
			}
			if opts.onlyChanges {
				days = cashflow.FilterChanged(days)
			}

			data, err := cashflow.ExportCSV(days)
			if err != nil {
				return fmt.Errorf("%d months: %w", months, err)
			}

			path := filepath.Join(opts.outDir, outputName(now, months, len(opts.horizons) > 1))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			logger.Info("projection exported",
				zap.Int("months", months),
				zap.Int("rows", len(days)),
				zap.String("file", path),
			)
			written[i] = path
			return nil
		})
	}
	err := g.Wait()

	files := written[:0]
	for _, f := range written {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, err
}
