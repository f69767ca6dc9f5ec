package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// CashflowMetrics is returned by GET /v1/metrics/cashflow.
type CashflowMetrics struct {
	Loads          int64   `json:"loads"`
	FetchFailures  int64   `json:"fetchFailures"`
	SupersededLoad int64   `json:"supersededLoads"`
	Exports        int64   `json:"exports"`
	RefusedExports int64   `json:"refusedExports"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	Period         string  `json:"period"`
}
