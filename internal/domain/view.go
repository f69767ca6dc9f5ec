package domain

import "time"

// ============================================================
// Cashflow page view
// ============================================================

// HorizonOption is one entry of the horizon selector.
type HorizonOption struct {
	Months int    `json:"months"`
	Label  string `json:"label"`
}

// FormattedTotals are the page totals rendered as currency.
type FormattedTotals struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

// ProjectionView is everything the cashflow page displays for one set of
// parameters. It is rebuilt from scratch from each fetched sequence.
type ProjectionView struct {
	Seq            uint64                `json:"seq"`
	Params         ProjectionParams      `json:"params"`
	Title          string                `json:"title"`
	Subtitle       string                `json:"subtitle"`
	HorizonOptions []HorizonOption       `json:"horizonOptions"`
	Daily          []DailyProjection     `json:"daily"`
	Monthly        []MonthlySummaryPoint `json:"monthly"`
	Axis           *AxisRange            `json:"axis,omitempty"`
	Totals         ProjectionTotals      `json:"totals"`
	TotalsLabel    FormattedTotals       `json:"totalsLabel"`
	Empty          bool                  `json:"empty"`
	EmptyMessage   string                `json:"emptyMessage,omitempty"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}
