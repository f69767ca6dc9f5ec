// Package chart renders the monthly cashflow roll-up as a self-contained
// SVG area chart with per-month tooltips.
package chart

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/flowsight/flowsight-bfa/internal/cashflow"
	"github.com/flowsight/flowsight-bfa/internal/domain"
)

// EmptyMessage is shown instead of a chart when there is nothing to plot.
const EmptyMessage = "グラフデータがありません。銀行口座や収入源を設定してください。"

// Theme selects the chart palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps a query value to a Theme, defaulting to light.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

type palette struct {
	primary    string
	muted      string
	grid       string
	background string
}

func (t Theme) palette() palette {
	if t == ThemeDark {
		return palette{primary: "#60a5fa", muted: "#9ca3af", grid: "#374151", background: "#1f2937"}
	}
	return palette{primary: "#3b82f6", muted: "#6b7280", grid: "#e5e7eb", background: "#ffffff"}
}

// Options controls size and captions.
type Options struct {
	Width    int
	Height   int
	Title    string
	Subtitle string
	Theme    Theme
}

// DefaultOptions matches the card the chart is embedded in.
func DefaultOptions() Options {
	return Options{
		Width:  960,
		Height: 400,
		Title:  "キャッシュフロー推移グラフ",
		Theme:  ThemeLight,
	}
}

const (
	marginTop    = 56
	marginRight  = 30
	marginBottom = 80
	marginLeft   = 100
	yTicks       = 4
)

// RenderSVG writes the chart for points, which must be ordered by month.
// x is the month label, y the month-end balance scaled into
// cashflow.ComputeAxisRange. Empty input renders EmptyMessage.
func RenderSVG(w io.Writer, points []domain.MonthlySummaryPoint, opts Options) error {
	if opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom {
		return fmt.Errorf("chart size %dx%d too small", opts.Width, opts.Height)
	}
	pal := opts.Theme.palette()

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img" font-family="sans-serif">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", pal.background)
	fmt.Fprintf(&b, `<text x="16" y="24" font-size="16" font-weight="600" fill="%s">%s</text>`+"\n", pal.muted, html.EscapeString(opts.Title))
	if opts.Subtitle != "" {
		fmt.Fprintf(&b, `<text x="16" y="44" font-size="12" fill="%s">%s</text>`+"\n", pal.muted, html.EscapeString(opts.Subtitle))
	}

	axis, ok := cashflow.ComputeAxisRange(points)
	if !ok {
		fmt.Fprintf(&b, `<text class="empty" x="%d" y="%d" text-anchor="middle" font-size="14" fill="%s">%s</text>`+"\n",
			opts.Width/2, opts.Height/2, pal.muted, html.EscapeString(EmptyMessage))
		b.WriteString("</svg>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	p := newPlot(opts, axis, len(points))

	b.WriteString(`<defs><linearGradient id="balanceGradient" x1="0" y1="0" x2="0" y2="1">`)
	fmt.Fprintf(&b, `<stop offset="0%%" stop-color="%[1]s" stop-opacity="0.8"/><stop offset="50%%" stop-color="%[1]s" stop-opacity="0.4"/><stop offset="100%%" stop-color="%[1]s" stop-opacity="0.05"/>`, pal.primary)
	b.WriteString("</linearGradient></defs>\n")
	b.WriteString("<style>.point circle{fill-opacity:0;stroke-opacity:0}.point:hover circle,.point:focus circle{fill-opacity:1;stroke-opacity:1}</style>\n")

	// Grid and y ticks.
	for k := 0; k <= yTicks; k++ {
		v := axis.Lower + (axis.Upper-axis.Lower)*int64(k)/yTicks
		y := p.y(v)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3 3" opacity="0.3"/>`+"\n",
			marginLeft, y, opts.Width-marginRight, y, pal.muted)
		fmt.Fprintf(&b, `<text class="tick" x="%d" y="%.1f" text-anchor="end" dominant-baseline="middle" font-size="12" font-weight="500" fill="%s">%s</text>`+"\n",
			marginLeft-8, y, pal.muted, cashflow.FormatCurrency(v))
	}

	// Area under the balance line, then the line itself.
	var area, line strings.Builder
	fmt.Fprintf(&area, "M%.1f,%.1f", p.x(0), p.bottom())
	for i, pt := range points {
		fmt.Fprintf(&area, " L%.1f,%.1f", p.x(i), p.y(pt.Balance))
		if i == 0 {
			fmt.Fprintf(&line, "M%.1f,%.1f", p.x(i), p.y(pt.Balance))
		} else {
			fmt.Fprintf(&line, " L%.1f,%.1f", p.x(i), p.y(pt.Balance))
		}
	}
	fmt.Fprintf(&area, " L%.1f,%.1f Z", p.x(len(points)-1), p.bottom())
	fmt.Fprintf(&b, `<path class="area" d="%s" fill="url(#balanceGradient)" stroke="none"/>`+"\n", area.String())
	fmt.Fprintf(&b, `<path class="line" d="%s" fill="none" stroke="%s" stroke-width="3"/>`+"\n", line.String(), pal.primary)

	// One focusable marker per month carrying its tooltip, plus the x label.
	for i, pt := range points {
		x, y := p.x(i), p.y(pt.Balance)
		fmt.Fprintf(&b, `<g class="point" tabindex="0"><title>%s</title><circle cx="%.1f" cy="%.1f" r="6" fill="%s" stroke="%s" stroke-width="3"/></g>`+"\n",
			html.EscapeString(Tooltip(pt)), x, y, pal.background, pal.primary)
		fmt.Fprintf(&b, `<text class="label" x="%.1f" y="%.1f" transform="rotate(-45 %.1f %.1f)" text-anchor="end" font-size="12" font-weight="500" fill="%s">%s</text>`+"\n",
			x, p.bottom()+16, x, p.bottom()+16, pal.muted, html.EscapeString(pt.Label))
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Tooltip is the hover/focus text of one month.
func Tooltip(pt domain.MonthlySummaryPoint) string {
	return fmt.Sprintf("%s\n収入: %s\n支出: %s\n残高: %s",
		pt.Label,
		cashflow.FormatCurrency(pt.Income),
		cashflow.FormatCurrency(pt.Expense),
		cashflow.FormatCurrency(pt.Balance),
	)
}

type plot struct {
	left, top, width, height float64
	axis                     domain.AxisRange
	n                        int
}

func newPlot(opts Options, axis domain.AxisRange, n int) plot {
	return plot{
		left:   marginLeft,
		top:    marginTop,
		width:  float64(opts.Width - marginLeft - marginRight),
		height: float64(opts.Height - marginTop - marginBottom),
		axis:   axis,
		n:      n,
	}
}

func (p plot) x(i int) float64 {
	if p.n == 1 {
		return p.left + p.width/2
	}
	return p.left + p.width*float64(i)/float64(p.n-1)
}

// y maps a balance into pixel space. Pixel coordinates are the only place
// amounts become floats.
func (p plot) y(v int64) float64 {
	span := float64(p.axis.Upper - p.axis.Lower)
	return p.top + p.height*float64(p.axis.Upper-v)/span
}

func (p plot) bottom() float64 {
	return p.top + p.height
}
