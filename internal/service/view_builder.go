package service

import (
	"time"

	"github.com/flowsight/flowsight-bfa/internal/cashflow"
	"github.com/flowsight/flowsight-bfa/internal/chart"
	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// Subtitle captions the chart for a horizon.
func Subtitle(months int) string {
	return cashflow.HorizonLabel(months) + "の月末残高推移"
}

// HorizonOptions lists the selectable horizons with their labels.
func HorizonOptions() []domain.HorizonOption {
	opts := make([]domain.HorizonOption, 0, len(domain.HorizonOptions))
	for _, m := range domain.HorizonOptions {
		opts = append(opts, domain.HorizonOption{Months: m, Label: cashflow.HorizonLabel(m)})
	}
	return opts
}

// BuildView runs the pure part of the pipeline over one fetched sequence.
func BuildView(days []domain.DailyProjection, params domain.ProjectionParams, now time.Time) *domain.ProjectionView {
	if days == nil {
		days = []domain.DailyProjection{}
	}
	monthly := cashflow.AggregateMonthly(days)
	totals := cashflow.Totals(days)

	view := &domain.ProjectionView{
		Params:         params,
		Title:          chart.DefaultOptions().Title,
		Subtitle:       Subtitle(params.Months),
		HorizonOptions: HorizonOptions(),
		Daily:          days,
		Monthly:        monthly,
		Totals:         totals,
		TotalsLabel: domain.FormattedTotals{
			Income:  cashflow.FormatCurrency(totals.Income),
			Expense: cashflow.FormatCurrency(totals.Expense),
			Net:     cashflow.FormatCurrency(totals.Net),
		},
		GeneratedAt: now,
	}

	if axis, ok := cashflow.ComputeAxisRange(monthly); ok {
		view.Axis = &axis
	} else {
		view.Empty = true
		view.EmptyMessage = chart.EmptyMessage
	}
	return view
}
