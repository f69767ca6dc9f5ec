// Package domain defines the entities shared across the Flow Sight BFA:
// the backend's daily cashflow projections, the monthly roll-ups derived
// from them and the identity of the signed-in user.
package domain

// ============================================================
// Cashflow projection (produced by the backend)
// ============================================================

// DetailType classifies a line item of a projected day.
type DetailType string

const (
	DetailIncome           DetailType = "income"
	DetailRecurringPayment DetailType = "recurring_payment"
	DetailCardPayment      DetailType = "card_payment"
)

// ProjectionDetail explains one movement of a projected day.
type ProjectionDetail struct {
	Type        DetailType `json:"type"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
}

// DailyProjection is one day of the backend's cashflow projection.
// Amounts are minor currency units. Balance is the running balance at the
// end of the day and is never recomputed on this side.
type DailyProjection struct {
	Date    Date               `json:"date"`
	Income  int64              `json:"income"`
	Expense int64              `json:"expense"`
	Balance int64              `json:"balance"`
	Details []ProjectionDetail `json:"details"`
}

// HasActivity reports whether anything moved on this day. A day whose
// income and expense cancel out still counts: money moved even though the
// balance did not.
func (p DailyProjection) HasActivity() bool {
	return p.Income != 0 || p.Expense != 0
}

// ============================================================
// Derived data (recomputed on every fetch, never persisted)
// ============================================================

// MonthlySummaryPoint is the roll-up of one calendar month.
// Balance is the balance of the latest day seen in the month; Income and
// Expense are full-month sums.
type MonthlySummaryPoint struct {
	YearMonth string `json:"yearMonth"`
	Label     string `json:"label"`
	Balance   int64  `json:"balance"`
	Income    int64  `json:"income"`
	Expense   int64  `json:"expense"`
	LastDate  Date   `json:"lastDate"`
}

// AxisRange is the inclusive render range of the balance axis.
type AxisRange struct {
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper"`
}

// ProjectionTotals sums the raw daily sequence for the page summary cards.
type ProjectionTotals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}

// ============================================================
// Request parameters
// ============================================================

const (
	DefaultHorizonMonths = 6
	MaxHorizonMonths     = 120
)

// HorizonOptions are the horizons offered by the UI selector.
var HorizonOptions = []int{6, 12, 24, 36, 60, 120}

// ProjectionParams selects what the backend projects.
type ProjectionParams struct {
	Months      int  `json:"months"`
	OnlyChanges bool `json:"onlyChanges"`
}

// Validate checks the horizon bounds.
func (p ProjectionParams) Validate() error {
	if p.Months < 1 || p.Months > MaxHorizonMonths {
		return &ErrValidation{Field: "months", Message: "must be between 1 and 120"}
	}
	return nil
}
