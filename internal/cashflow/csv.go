package cashflow

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// CSVHeader is the fixed header row of the export: date, income, expense, balance.
var CSVHeader = []string{"日付", "収入", "支出", "残高"}

// WriteCSV writes the raw daily sequence as CSV, one row per day, amounts
// in major units. An empty sequence is refused with domain.ErrNoData and
// nothing is written.
func WriteCSV(w io.Writer, days []domain.DailyProjection) error {
	if len(days) == 0 {
		return domain.ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, day := range days {
		row := []string{
			day.Date.String(),
			MajorUnits(day.Income),
			MajorUnits(day.Expense),
			MajorUnits(day.Balance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", day.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV is WriteCSV into a buffer.
func ExportCSV(days []domain.DailyProjection) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, days); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names the export after the UTC date it was produced on.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("cashflow_projection_%s.csv", now.UTC().Format(time.DateOnly))
}
