// Package domain holds the value types shared by the extraction, aggregation
// and simulation packages.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Dates
// ---------------------------------------------------------------------------

// DateLayout is the on-disk and wire form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. The zero value is the zero time.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// DaysSince returns the number of calendar days from earlier to d.
func (d Date) DaysSince(earlier Date) int {
	return int(d.Sub(earlier.Time).Hours() / 24)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", b)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Position is the trade direction implied by a piece of text.
type Position string

const (
	PositionCall    Position = "C"
	PositionPut     Position = "P"
	PositionUnknown Position = ""
)

// Valid reports whether p is a determinable direction.
func (p Position) Valid() bool {
	return p == PositionCall || p == PositionPut
}

// RawItem is one piece of text captured from the feed.
type RawItem struct {
	Text       string
	CapturedAt time.Time
	IsTitle    bool
}

// Signal is the validated ticker set and position extracted from one RawItem.
// Tickers are unique and in first-seen order.
type Signal struct {
	Tickers  []string
	Position Position
}

// Records flattens the signal into one SignalRecord per ticker. A signal
// with an unknown position yields no records.
func (s Signal) Records(date Date) []SignalRecord {
	if !s.Position.Valid() {
		return nil
	}
	out := make([]SignalRecord, 0, len(s.Tickers))
	for _, t := range s.Tickers {
		out = append(out, SignalRecord{Date: date, Ticker: t, Position: s.Position})
	}
	return out
}

// SignalRecord is the atomic unit persisted in snapshots and aggregated.
type SignalRecord struct {
	Date     Date     `json:"date"`
	Ticker   string   `json:"ticker"`
	Position Position `json:"position"`
}

// ---------------------------------------------------------------------------
// Market data and trades
// ---------------------------------------------------------------------------

// Bar is one trading day of OHLCV data.
type Bar struct {
	Symbol string
	Date   Date
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Side is the direction of a held position.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OrderSide is the direction of a single fill.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// TradeAction labels a trade log entry.
type TradeAction string

const (
	ActionEnterLong  TradeAction = "enter-long"
	ActionEnterShort TradeAction = "enter-short"
	ActionExit       TradeAction = "exit"
)

// ExitReason values recorded on exit entries.
const (
	ReasonEntry     = "entry"
	ReasonPriceUp   = "price-up"
	ReasonPriceDown = "price-down"
	ReasonMaxHold   = "max-hold"
)

// Order is a market order emitted by a strategy and filled by a broker at
// the given price.
type Order struct {
	Symbol   string
	Side     OrderSide
	Qty      int64
	Price    decimal.Decimal
	Date     Date
	Action   TradeAction
	Reason   string
	HeldDays int
}

// TradeLogEntry is one append-only line of a simulation's trade log.
type TradeLogEntry struct {
	Date       Date
	Action     TradeAction
	Price      decimal.Decimal
	Size       int64
	Commission decimal.Decimal
	HeldDays   int
	Reason     string
}
