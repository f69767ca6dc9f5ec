package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/config"
	"github.com/flowsight/flowsight-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu     sync.Mutex
	days   map[int][]domain.DailyProjection
	params []domain.ProjectionParams
}

func (f *fakeFetcher) GetProjection(_ context.Context, params domain.ProjectionParams) ([]domain.DailyProjection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	return f.days[params.Months], nil
}

var exportTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sample() []domain.DailyProjection {
	return []domain.DailyProjection{
		{Date: domain.MustParseDate("2024-03-01"), Income: 100000, Balance: 100000},
		{Date: domain.MustParseDate("2024-03-02"), Balance: 100000},
	}
}

func TestLoadConfig_MalformedDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLOWSIGHT_TEST_Q=\"unterminated\n"), 0o600))

	cfg, err := loadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_MissingDotEnv(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.DefaultMonths)
}

func TestParseFlags(t *testing.T) {
	cfg := config.Load()

	opts, err := parseFlags([]string{"-token", "tok", "-months", "6, 12,6", "-only-changes"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 12}, opts.horizons)
	assert.True(t, opts.onlyChanges)

	_, err = parseFlags([]string{"-token", "tok", "-months", "0"}, cfg)
	assert.Error(t, err)

	t.Setenv("FLOWSIGHT_TOKEN", "")
	_, err = parseFlags([]string{"-months", "6"}, cfg)
	assert.Error(t, err)
}

func TestRun_SingleHorizon(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{days: map[int][]domain.DailyProjection{6: sample()}}

	files, err := run(context.Background(), options{horizons: []int{6}, outDir: dir}, f, exportTime, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "cashflow_projection_2024-03-01.csv")}, files)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "日付,収入,支出,残高\n2024-03-01,1000,0,1000\n2024-03-02,0,0,1000\n", string(data))
}

func TestRun_MultipleHorizonsAndOnlyChanges(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{days: map[int][]domain.DailyProjection{6: sample(), 12: sample()}}

	files, err := run(context.Background(), options{horizons: []int{6, 12}, onlyChanges: true, outDir: dir}, f, exportTime, zap.NewNop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "cashflow_projection_2024-03-01_6m.csv"),
		filepath.Join(dir, "cashflow_projection_2024-03-01_12m.csv"),
	}, files)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "日付,収入,支出,残高\n2024-03-01,1000,0,1000\n", string(data))

	for _, p := range f.params {
		assert.True(t, p.OnlyChanges)
	}
}

func TestRun_EmptyProjectionIsRefused(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{days: map[int][]domain.DailyProjection{6: sample()}}

	files, err := run(context.Background(), options{horizons: []int{6, 24}, outDir: dir}, f, exportTime, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.Len(t, files, 1)
	_, statErr := os.Stat(filepath.Join(dir, "cashflow_projection_2024-03-01_24m.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
