// Package cashflow turns the backend's daily projection sequence into what
// the browser displays: monthly roll-ups, a padded balance axis, page totals
// and the CSV export. Everything here is pure and works on int64 minor
// units; conversion to major units happens only when formatting.
package cashflow

import (
	"sort"

	"github.com/flowsight/flowsight-bfa/internal/domain"
)

type monthAccumulator struct {
	balance  int64
	income   int64
	expense  int64
	lastDate domain.Date
}

// AggregateMonthly rolls daily projections up into one point per calendar
// month, ordered by month. Income and expense are summed; the balance is the
// one of the latest date seen in the month, whatever order the days arrive in.
func AggregateMonthly(days []domain.DailyProjection) []domain.MonthlySummaryPoint {
	months := make(map[string]*monthAccumulator)

	for _, day := range days {
		key := day.Date.YearMonth()
		acc, ok := months[key]
		if !ok {
			months[key] = &monthAccumulator{
				balance:  day.Balance,
				income:   day.Income,
				expense:  day.Expense,
				lastDate: day.Date,
			}
			continue
		}

		acc.income += day.Income
		acc.expense += day.Expense
		if day.Date.After(acc.lastDate) {
			acc.balance = day.Balance
			acc.lastDate = day.Date
		}
	}

	points := make([]domain.MonthlySummaryPoint, 0, len(months))
	for key, acc := range months {
		points = append(points, domain.MonthlySummaryPoint{
			YearMonth: key,
			Label:     YearMonthLabel(key),
			Balance:   acc.balance,
			Income:    acc.income,
			Expense:   acc.expense,
			LastDate:  acc.lastDate,
		})
	}

	// "YYYY-MM" is zero-padded, so string order is month order.
	sort.Slice(points, func(i, j int) bool {
		return points[i].YearMonth < points[j].YearMonth
	})
	return points
}

// Totals sums income and expense over the raw daily sequence.
func Totals(days []domain.DailyProjection) domain.ProjectionTotals {
	var t domain.ProjectionTotals
	for _, day := range days {
		t.Income += day.Income
		t.Expense += day.Expense
	}
	t.Net = t.Income - t.Expense
	return t
}

// FilterChanged keeps only the days with income or expense. A day where
// both are nonzero and cancel out is kept, so its entries stay visible in
// the daily list and the CSV. Backends that already honor onlyChanges
// return sequences this leaves untouched.
func FilterChanged(days []domain.DailyProjection) []domain.DailyProjection {
	out := make([]domain.DailyProjection, 0, len(days))
	for _, day := range days {
		if day.HasActivity() {
			out = append(out, day)
		}
	}
	return out
}
