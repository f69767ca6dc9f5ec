package cashflow_test

import (
	"math/rand"
	"testing"

	"github.com/flowsight/flowsight-bfa/internal/cashflow"
	"github.com/flowsight/flowsight-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(balances ...int64) []domain.MonthlySummaryPoint {
	out := make([]domain.MonthlySummaryPoint, len(balances))
	for i, b := range balances {
		out[i] = domain.MonthlySummaryPoint{Balance: b}
	}
	return out
}

func TestComputeAxisRange(t *testing.T) {
	tests := []struct {
		name     string
		balances []int64
		want     domain.AxisRange
	}{
		{"scenario months", []int64{450000, 650000}, domain.AxisRange{Lower: 430000, Upper: 670000}},
		{"flat balance uses minimum padding", []int64{500000, 500000}, domain.AxisRange{Lower: 490000, Upper: 510000}},
		{"single point", []int64{500000}, domain.AxisRange{Lower: 490000, Upper: 510000}},
		{"negative flat balance", []int64{-15000}, domain.AxisRange{Lower: -30000, Upper: 0}},
		{"fractional padding", []int64{0, 15}, domain.AxisRange{Lower: -10000, Upper: 10000}},
		{"crossing zero", []int64{-120000, 80000}, domain.AxisRange{Lower: -140000, Upper: 100000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cashflow.ComputeAxisRange(points(tt.balances...))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeAxisRange_Empty(t *testing.T) {
	_, ok := cashflow.ComputeAxisRange(nil)
	assert.False(t, ok)
}

func TestComputeAxisRange_Containment(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for run := 0; run < 500; run++ {
		n := 1 + r.Intn(24)
		balances := make([]int64, n)
		minB, maxB := int64(0), int64(0)
		for i := range balances {
			balances[i] = r.Int63n(100_000_000) - 50_000_000
			if i == 0 || balances[i] < minB {
				minB = balances[i]
			}
			if i == 0 || balances[i] > maxB {
				maxB = balances[i]
			}
		}

		got, ok := cashflow.ComputeAxisRange(points(balances...))
		require.True(t, ok)
		assert.LessOrEqual(t, got.Lower, minB)
		assert.GreaterOrEqual(t, got.Upper, maxB)
		assert.Zero(t, got.Lower%cashflow.AxisStep, "lower %d not a multiple of the step", got.Lower)
		assert.Zero(t, got.Upper%cashflow.AxisStep, "upper %d not a multiple of the step", got.Upper)
	}
}
