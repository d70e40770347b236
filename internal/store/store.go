// Package store defines storage interfaces for persisting and retrieving
// price bars, signal records and simulation runs.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars, replacing bars with the same
	// symbol and date.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for symbol within [start, end], ascending.
	ReadBars(ctx context.Context, symbol string, start, end domain.Date) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// SignalStore persists signal records alongside the snapshot they came from.
type SignalStore interface {
	// SaveSignals inserts records tagged with the snapshot name.
	SaveSignals(ctx context.Context, snapshot string, records []domain.SignalRecord) error

	// ListSignals returns records dated on or after since, oldest first.
	ListSignals(ctx context.Context, since domain.Date) ([]domain.SignalRecord, error)
}

// RunStore persists simulation outcomes.
type RunStore interface {
	// SaveRun inserts a run and its trade log, filling in run.ID.
	SaveRun(ctx context.Context, run *Run, trades []domain.TradeLogEntry) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// ListTrades returns the trade log of one run in insertion order.
	ListTrades(ctx context.Context, runID int64) ([]domain.TradeLogEntry, error)
}

// Run is the stored summary of one simulation.
type Run struct {
	ID           int64
	CreatedAt    time.Time
	Snapshot     string
	Symbol       string
	Position     domain.Position
	Count        int // frequency of the dominant signal
	StartingCash decimal.Decimal
	FinalValue   decimal.Decimal
	Trades       int
}
