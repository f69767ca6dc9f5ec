package cashflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowsight/flowsight-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const yenSign = "￥"

var jaPrinter = message.NewPrinter(language.Japanese)

// MajorUnits converts minor units to plain decimal text ("3000", "12.34",
// "-0.5"): exact, no grouping, no symbol.
func MajorUnits(minor int64) string {
	return decimal.New(minor, -2).String()
}

// FormatCurrency renders minor units the way the UI shows money: whole yen,
// grouped, with the yen sign (￥1,234 / -￥1,234).
func FormatCurrency(minor int64) string {
	yen := decimal.New(minor, -2).Round(0).IntPart()
	if yen < 0 {
		return "-" + yenSign + jaPrinter.Sprintf("%d", -yen)
	}
	return yenSign + jaPrinter.Sprintf("%d", yen)
}

// FormatDate renders a date as 2024/01/05.
func FormatDate(d domain.Date) string {
	return d.Format("2006/01/02")
}

// YearMonthLabel turns "2024-01" into "2024年1月". Unparseable keys are
// returned unchanged.
func YearMonthLabel(key string) string {
	year, month, ok := strings.Cut(key, "-")
	if !ok {
		return key
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s年%d月", year, m)
}

// HorizonLabel describes a projection horizon counted from the current
// month, e.g. "当月から6ヶ月間" or "当月から1年6ヶ月間".
func HorizonLabel(months int) string {
	if months < 12 {
		return fmt.Sprintf("当月から%dヶ月間", months)
	}
	label := fmt.Sprintf("当月から%d年", months/12)
	if rest := months % 12; rest > 0 {
		label += fmt.Sprintf("%dヶ月", rest)
	}
	return label + "間"
}
