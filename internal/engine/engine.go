// Package engine coordinates one pipeline run: gathering posts, extracting
// signals, persisting the snapshot, picking the dominant signal and
// backtesting it against recent prices.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yolotrader/internal/aggregate"
	"yolotrader/internal/domain"
	"yolotrader/internal/extract"
	"yolotrader/internal/gather"
	"yolotrader/internal/market"
	"yolotrader/internal/snapshot"
	"yolotrader/internal/store"
	"yolotrader/internal/strategy"
	"yolotrader/internal/util"
)

// Options tunes the pipeline. Zero fields take the defaults noted.
type Options struct {
	OffsetDays    int           // snapshot date = today - OffsetDays; default 32
	LookbackDays  int           // price window length; default 31
	RetryAttempts int           // price history attempts; default 3
	RetryDelay    time.Duration // first backoff; default 1s
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.OffsetDays == 0 {
		o.OffsetDays = 32
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 31
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Deps are the collaborators of an Engine. Signals and Runs may be nil to
// skip the SQLite history.
type Deps struct {
	Gatherer   gather.Gatherer
	Extractor  *extract.Extractor
	Snapshots  *snapshot.Store
	Signals    store.SignalStore
	Runs       store.RunStore
	History    market.History
	Backtester *strategy.Backtester
	Log        *slog.Logger
}

// Engine runs the pipeline over its dependencies.
type Engine struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

// New creates an Engine wired with the given dependencies.
func New(deps Deps, opts Options) *Engine {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		deps: deps,
		opts: opts.withDefaults(),
		log:  log.With("component", "engine"),
	}
}

// Result is the outcome of one full run.
type Result struct {
	Snapshot string
	Items    int
	Records  []domain.SignalRecord
	Table    *aggregate.FrequencyTable
	Dominant aggregate.Key
	Count    int
	Backtest *strategy.BacktestResult
	RunID    int64
}

// Analysis is an aggregation of stored snapshots.
type Analysis struct {
	Snapshot string
	Records  []domain.SignalRecord
	Table    *aggregate.FrequencyTable
	ByTicker []aggregate.TickerCount
}

func (e *Engine) today() domain.Date {
	return domain.DateOf(e.opts.Now())
}

// Run gathers, extracts, snapshots, aggregates and simulates. When no
// signal survives extraction the snapshot is still written and the returned
// error wraps aggregate.ErrEmptyTable.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.deps.Gatherer == nil || e.deps.Extractor == nil || e.deps.Snapshots == nil {
		return nil, errors.New("engine: gatherer, extractor and snapshot store are required")
	}
	started := time.Now()

	items, err := e.deps.Gatherer.Gather(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering from %s: %w", e.deps.Gatherer.Name(), err)
	}
	e.log.Info("gathered items", "source", e.deps.Gatherer.Name(), "items", len(items))

	signals, err := e.deps.Extractor.ExtractBatch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("extracting signals: %w", err)
	}

	records := []domain.SignalRecord{}
	for i, sig := range signals {
		records = append(records, sig.Records(domain.DateOf(items[i].CapturedAt))...)
	}

	name, err := e.deps.Snapshots.Save(e.today().AddDays(-e.opts.OffsetDays), records)
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	if e.deps.Signals != nil {
		if err := e.deps.Signals.SaveSignals(ctx, name, records); err != nil {
			e.log.Warn("recording signals failed", "snapshot", name, "error", err)
		}
	}

	res := &Result{
		Snapshot: name,
		Items:    len(items),
		Records:  records,
		Table:    aggregate.Aggregate(records),
	}
	key, err := aggregate.Dominant(res.Table)
	if err != nil {
		return res, fmt.Errorf("snapshot %s: %w", name, err)
	}
	res.Dominant = key
	res.Count = res.Table.Count(key)
	e.log.Info("dominant signal",
		"ticker", key.Ticker,
		"position", string(key.Position),
		"count", res.Count,
		"records", len(records),
	)

	bt, err := e.Simulate(ctx, key.Ticker, key.Position)
	if err != nil {
		return res, err
	}
	res.Backtest = bt

	if e.deps.Runs != nil {
		run := &store.Run{
			CreatedAt:    e.opts.Now(),
			Snapshot:     name,
			Symbol:       key.Ticker,
			Position:     key.Position,
			Count:        res.Count,
			StartingCash: bt.StartingCash,
			FinalValue:   bt.FinalValue,
		}
		if err := e.deps.Runs.SaveRun(ctx, run, bt.Trades); err != nil {
			e.log.Warn("recording run failed", "error", err)
		} else {
			res.RunID = run.ID
		}
	}

	e.log.Info("run complete",
		"snapshot", name,
		"final_value", bt.FinalValue.StringFixed(2),
		"trades", len(bt.Trades),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return res, nil
}

// Simulate backtests position in symbol over the trailing lookback window.
// Price history is retried with backoff; an empty price series is returned
// as strategy.ErrEmptyBars.
func (e *Engine) Simulate(ctx context.Context, symbol string, position domain.Position) (*strategy.BacktestResult, error) {
	if e.deps.History == nil || e.deps.Backtester == nil {
		return nil, errors.New("engine: price history and backtester are required to simulate")
	}
	end := e.today()
	start := end.AddDays(-e.opts.LookbackDays)

	bars, err := util.RetryValue(ctx, e.opts.RetryAttempts, e.opts.RetryDelay, func() ([]domain.Bar, error) {
		bars, err := e.deps.History.History(ctx, symbol, start, end)
		if err != nil && ctx.Err() != nil {
			return nil, util.Permanent(err)
		}
		if err != nil {
			e.log.Warn("price history failed", "symbol", symbol, "error", err)
		}
		return bars, err
	})
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", symbol, err)
	}

	bt, err := e.deps.Backtester.Run(ctx, symbol, position, bars)
	if err != nil {
		return nil, fmt.Errorf("simulating %s: %w", symbol, err)
	}
	return bt, nil
}

// Analyze aggregates the snapshot called name, or the latest when name is
// empty, without gathering.
func (e *Engine) Analyze(name string) (*Analysis, error) {
	if name == "" {
		latest, err := e.deps.Snapshots.Latest()
		if err != nil {
			return nil, err
		}
		name = latest
	}
	records, err := e.deps.Snapshots.Load(name)
	if err != nil {
		return nil, err
	}
	return analysis(name, records), nil
}

// AnalyzeAll aggregates every stored snapshot as one collection.
func (e *Engine) AnalyzeAll() (*Analysis, error) {
	records, err := e.deps.Snapshots.LoadAll()
	if err != nil {
		return nil, err
	}
	return analysis("all", records), nil
}

func analysis(name string, records []domain.SignalRecord) *Analysis {
	return &Analysis{
		Snapshot: name,
		Records:  records,
		Table:    aggregate.Aggregate(records),
		ByTicker: aggregate.ByTicker(records),
	}
}
