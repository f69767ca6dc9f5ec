package observability_test

import (
	"testing"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/infra/observability"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrLoad(observability.LoadApplied)
	m.IncrLoad(observability.LoadApplied)
	m.IncrLoad(observability.LoadSuperseded)
	m.IncrLoad(observability.LoadFailed)
	m.IncrExport(observability.ExportOK)
	m.IncrExport(observability.ExportRefused)
	m.IncrCacheHit("projection")
	m.IncrCacheMiss("projection")
	m.IncrCacheMiss("projection")
	m.IncrCacheMiss("projection")
	m.RecordRequestDuration("projection", 15*time.Millisecond)

	snap := m.Snapshot()

	assert.Equal(t, int64(4), snap.Loads)
	assert.Equal(t, int64(1), snap.FetchFailures)
	assert.Equal(t, int64(1), snap.SupersededLoad)
	assert.Equal(t, int64(1), snap.Exports)
	assert.Equal(t, int64(1), snap.RefusedExports)
	assert.InDelta(t, 0.25, snap.CacheHitRate, 1e-9)
}

func TestNewMetrics_Twice(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics()
		observability.NewMetrics()
	})
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := observability.InitTracer("", "flowsight-bfa-test")

	assert.NoError(t, err)
	assert.NotNil(t, shutdown)
}
