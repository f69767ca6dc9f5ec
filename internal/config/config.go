package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Backend API (projection, auth, CRUD resources)
	BackendAPIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL   time.Duration // projection responses
	SessionTTL time.Duration // upper bound for a cached session
	ViewTTL    time.Duration // idle lifetime of a browser's cashflow view

	// Observability
	OTLPEndpoint string

	// Auth
	JWTSecret    string // optional; when set, bearer tokens are verified with HS256
	CookieSecure bool

	// Browser edge
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Cashflow
	DefaultMonths int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 3001),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendAPIURL: strings.TrimRight(getEnv("BACKEND_API_URL", "http://localhost:8080"), "/"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL:   getEnvDuration("CACHE_TTL", 30*time.Second),
		SessionTTL: getEnvDuration("SESSION_TTL", time.Hour),
		ViewTTL:    getEnvDuration("VIEW_TTL", 30*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		DefaultMonths: getEnvInt("DEFAULT_MONTHS", domain.DefaultHorizonMonths),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if u, err := url.Parse(c.BackendAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_API_URL must be an absolute URL: %q", c.BackendAPIURL))
	} else if pointsAtSelf(u, c.Port) {
		errs = append(errs, fmt.Errorf("BACKEND_API_URL %q points at this server (PORT %d)", c.BackendAPIURL, c.Port))
	}
	if err := (domain.ProjectionParams{Months: c.DefaultMonths}).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_MONTHS: %w", err))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be positive: %d", c.MaxConcurrency))
	}
	if c.CacheTTL <= 0 || c.SessionTTL <= 0 || c.ViewTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL, SESSION_TTL and VIEW_TTL must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

// pointsAtSelf reports whether u is a local address on the port this
// server listens on. Proxying there would loop.
func pointsAtSelf(u *url.URL, port int) bool {
	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !(ip.IsLoopback() || ip.IsUnspecified()) {
			return false
		}
	}

	p := u.Port()
	if p == "" {
		switch u.Scheme {
		case "https":
			p = "443"
		default:
			p = "80"
		}
	}
	return p == strconv.Itoa(port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
