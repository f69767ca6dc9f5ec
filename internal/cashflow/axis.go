package cashflow

import "github.com/flowsight/flowsight-bfa/internal/domain"

const (
	// AxisStep is the rounding unit of the balance axis bounds.
	AxisStep int64 = 10000
	// MinAxisPadding is used when every point has the same balance.
	MinAxisPadding int64 = 10000
)

// ComputeAxisRange returns the balance axis bounds for the given points:
// min/max widened by 10% of their spread (MinAxisPadding when the spread is
// zero) and rounded outwards to multiples of AxisStep. It reports false for
// an empty sequence.
func ComputeAxisRange(points []domain.MonthlySummaryPoint) (domain.AxisRange, bool) {
	if len(points) == 0 {
		return domain.AxisRange{}, false
	}

	minBalance, maxBalance := points[0].Balance, points[0].Balance
	for _, p := range points[1:] {
		if p.Balance < minBalance {
			minBalance = p.Balance
		}
		if p.Balance > maxBalance {
			maxBalance = p.Balance
		}
	}

	spread := maxBalance - minBalance
	if spread == 0 {
		return domain.AxisRange{
			Lower: floorDiv(minBalance-MinAxisPadding, AxisStep) * AxisStep,
			Upper: ceilDiv(maxBalance+MinAxisPadding, AxisStep) * AxisStep,
		}, true
	}

	// padding = spread/10 may be fractional; scale by 10 so that
	// floor((min - spread/10) / step) == floor((10*min - spread) / (10*step)).
	return domain.AxisRange{
		Lower: floorDiv(10*minBalance-spread, 10*AxisStep) * AxisStep,
		Upper: ceilDiv(10*maxBalance+spread, 10*AxisStep) * AxisStep,
	}, true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
