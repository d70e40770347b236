// Package report renders frequency tables and backtest results as plain
// text for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"yolotrader/internal/aggregate"
	"yolotrader/internal/domain"
	"yolotrader/internal/store"
	"yolotrader/internal/strategy"
)

const (
	// DefaultWidth is the length of the longest bar.
	DefaultWidth = 40

	barGlyph = "█"
)

// Chart titles.
const (
	TitleByPosition = "r/wsb Ticker Frequency by Position"
	TitleByTicker   = "Ticker Frequency in r/wsb YOLO Posts"
)

// Renderer writes reports to an io.Writer. Colour is opt-in so output
// piped to files stays plain.
type Renderer struct {
	w     io.Writer
	width int
	color bool

	putStyle  lipgloss.Style
	callStyle lipgloss.Style
	gainStyle lipgloss.Style
	lossStyle lipgloss.Style
	headStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

// New creates a Renderer. A non-positive width uses DefaultWidth.
func New(w io.Writer, width int, color bool) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:         w,
		width:     width,
		color:     color,
		putStyle:  lr.NewStyle().Foreground(lipgloss.Color("9")),
		callStyle: lr.NewStyle().Foreground(lipgloss.Color("12")),
		gainStyle: lr.NewStyle().Foreground(lipgloss.Color("10")),
		lossStyle: lr.NewStyle().Foreground(lipgloss.Color("9")),
		headStyle: lr.NewStyle().Bold(true),
		dimStyle:  lr.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) positionStyle(p domain.Position) lipgloss.Style {
	if p == domain.PositionPut {
		return r.putStyle
	}
	return r.callStyle
}

// ---------------------------------------------------------------------------
// Frequency charts
// ---------------------------------------------------------------------------

type row struct {
	label string
	count int
	style *lipgloss.Style
}

// ByPosition draws one bar per (ticker, position), highest count first.
func (r *Renderer) ByPosition(snapshot string, t *aggregate.FrequencyTable) error {
	entries := t.Sorted()
	rows := make([]row, len(entries))
	for i, e := range entries {
		st := r.positionStyle(e.Key.Position)
		rows[i] = row{label: fmt.Sprintf("%s (%s)", e.Key.Ticker, e.Key.Position), count: e.Count, style: &st}
	}
	return r.chart(TitleByPosition, snapshot, "Ticker (Position)", rows)
}

// ByTicker draws one bar per ticker regardless of position.
func (r *Renderer) ByTicker(snapshot string, counts []aggregate.TickerCount) error {
	rows := make([]row, len(counts))
	for i, c := range counts {
		rows[i] = row{label: c.Ticker, count: c.Count}
	}
	return r.chart(TitleByTicker, snapshot, "Ticker", rows)
}

func (r *Renderer) chart(title, snapshot, axis string, rows []row) error {
	var b strings.Builder

	head := title
	if snapshot != "" {
		head += " [" + snapshot + "]"
	}
	b.WriteString(r.style(r.headStyle, head))
	b.WriteByte('\n')

	if len(rows) == 0 {
		b.WriteString(r.style(r.dimStyle, "(no signals)"))
		b.WriteByte('\n')
		_, err := io.WriteString(r.w, b.String())
		return err
	}

	labelW := len(axis)
	maxCount, total := 0, 0
	for _, rw := range rows {
		labelW = max(labelW, len(rw.label))
		maxCount = max(maxCount, rw.count)
		total += rw.count
	}

	fmt.Fprintf(&b, "%-*s  %s\n", labelW, axis, r.style(r.dimStyle, "Count"))
	for _, rw := range rows {
		bar := strings.Repeat(barGlyph, barLen(rw.count, maxCount, r.width))
		if rw.style != nil {
			bar = r.style(*rw.style, bar)
		}
		fmt.Fprintf(&b, "%-*s  %s %d\n", labelW, rw.label, bar, rw.count)
	}
	fmt.Fprintf(&b, "%s\n", r.style(r.dimStyle, fmt.Sprintf("%d entries, %s signals", len(rows), humanize.Comma(int64(total)))))

	_, err := io.WriteString(r.w, b.String())
	return err
}

// barLen scales count into [1, width].
func barLen(count, maxCount, width int) int {
	if maxCount <= 0 || count <= 0 {
		return 0
	}
	n := count * width / maxCount
	return max(n, 1)
}

// ---------------------------------------------------------------------------
// Backtest
// ---------------------------------------------------------------------------

// Money formats a decimal amount with thousands separators and two places.
func Money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// Backtest prints the trade log and portfolio summary of one run.
func (r *Renderer) Backtest(res *strategy.BacktestResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.style(r.headStyle, fmt.Sprintf("Backtest %s (%s)", res.Symbol, res.Position)))
	fmt.Fprintf(&b, "Starting Portfolio Value: %s\n", Money(res.StartingCash))

	if len(res.Trades) == 0 {
		fmt.Fprintf(&b, "%s\n", r.style(r.dimStyle, "no trades"))
	}
	for _, t := range res.Trades {
		fmt.Fprintf(&b, "%s, %s\n", t.Date, describe(t))
	}
	if res.Open {
		fmt.Fprintf(&b, "%s\n", r.style(r.dimStyle, "position still open, marked at last close"))
	}

	pnl := res.FinalValue.Sub(res.StartingCash)
	change := fmt.Sprintf("%+.2f%%", res.Return().Mul(decimal.NewFromInt(100)).InexactFloat64())
	if pnl.IsNegative() {
		change = r.style(r.lossStyle, change)
	} else if pnl.IsPositive() {
		change = r.style(r.gainStyle, change)
	}
	fmt.Fprintf(&b, "Final Portfolio Value: %s (%s)\n", Money(res.FinalValue), change)

	_, err := io.WriteString(r.w, b.String())
	return err
}

func describe(t domain.TradeLogEntry) string {
	price := t.Price.StringFixed(2)
	comm := t.Commission.StringFixed(2)
	switch t.Action {
	case domain.ActionEnterLong:
		return fmt.Sprintf("BUY %d @ %s, Commission: %s", t.Size, price, comm)
	case domain.ActionEnterShort:
		return fmt.Sprintf("SHORT %d @ %s, Commission: %s", t.Size, price, comm)
	case domain.ActionExit:
		return fmt.Sprintf("EXIT %d @ %s after %d days (%s), Commission: %s", t.Size, price, t.HeldDays, t.Reason, comm)
	default:
		return fmt.Sprintf("%s %d @ %s", t.Action, t.Size, price)
	}
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// Snapshots prints snapshot names, marking the latest.
func (r *Renderer) Snapshots(names []string) error {
	var b strings.Builder
	if len(names) == 0 {
		b.WriteString("no snapshots\n")
	}
	for i, n := range names {
		if i == len(names)-1 {
			fmt.Fprintf(&b, "%s  %s\n", n, r.style(r.dimStyle, "(latest)"))
			continue
		}
		fmt.Fprintf(&b, "%s\n", n)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

// Runs prints stored run summaries, newest first.
func (r *Renderer) Runs(runs []store.Run) error {
	var b strings.Builder
	if len(runs) == 0 {
		b.WriteString("no runs\n")
	}
	for _, run := range runs {
		fmt.Fprintf(&b, "#%d  %s  %-6s %s  x%d  %s -> %s  trades=%d\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Symbol, run.Position, run.Count,
			Money(run.StartingCash), Money(run.FinalValue), run.Trades)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}
