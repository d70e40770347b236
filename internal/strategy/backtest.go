package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"yolotrader/internal/broker"
	"yolotrader/internal/domain"
)

// ErrEmptyBars is returned when a run is given no price bars.
var ErrEmptyBars = errors.New("strategy: no price bars to simulate")

// BacktestResult holds the trade log and account outcome of one run.
type BacktestResult struct {
	Symbol       string
	Position     domain.Position
	Trades       []domain.TradeLogEntry
	StartingCash decimal.Decimal
	// FinalValue is cash plus any still-open position marked at the last
	// bar's close.
	FinalValue  decimal.Decimal
	RealizedPnL decimal.Decimal
	Commission  decimal.Decimal
	Bars        int
	Open        bool // position still held when the bars ran out
}

// Return is the fractional change from starting cash to final value.
func (r *BacktestResult) Return() decimal.Decimal {
	if r.StartingCash.IsZero() {
		return decimal.Zero
	}
	return r.FinalValue.Sub(r.StartingCash).Div(r.StartingCash)
}

// Backtester replays historical bars through a Follow strategy against a
// fresh SimulatorBroker. Each Run owns its own broker and strategy.
type Backtester struct {
	cfg Config
	log *slog.Logger
}

// NewBacktester creates a Backtester using cfg for every run.
func NewBacktester(cfg Config, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{cfg: cfg, log: log.With("component", "backtest")}
}

// Run simulates trading position in symbol over bars, which must be in
// ascending date order.
func (bt *Backtester) Run(ctx context.Context, symbol string, position domain.Position, bars []domain.Bar) (*BacktestResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrEmptyBars)
	}
	if err := bt.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	sim := broker.NewSimulatorBroker(bt.cfg.StartingCash, bt.cfg.Commission)
	strat := NewFollow(symbol, position, bt.cfg, bt.log)
	return bt.replay(ctx, symbol, position, bars, sim, strat)
}

func (bt *Backtester) replay(
	ctx context.Context,
	symbol string,
	position domain.Position,
	bars []domain.Bar,
	sim *broker.SimulatorBroker,
	strat Strategy,
) (*BacktestResult, error) {
	var b broker.Broker = sim

	res := &BacktestResult{
		Symbol:       symbol,
		Position:     position,
		Trades:       []domain.TradeLogEntry{},
		StartingCash: bt.cfg.StartingCash,
	}

	bt.log.Info("starting run",
		"symbol", symbol,
		"position", string(position),
		"bars", len(bars),
		"cash", bt.cfg.StartingCash.StringFixed(2),
	)

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Bars++

		acct, err := b.GetAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading account: %w", err)
		}
		orders, err := strat.OnBar(ctx, bar, acct.Cash)
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", strat.Name(), bar.Date, err)
		}

		for i := range orders {
			fill, err := b.SubmitOrder(ctx, &orders[i])
			if err != nil {
				return nil, fmt.Errorf("filling %s %s on %s: %w", orders[i].Side, symbol, bar.Date, err)
			}
			res.Trades = append(res.Trades, domain.TradeLogEntry{
				Date:       fill.Order.Date,
				Action:     fill.Order.Action,
				Price:      fill.Price,
				Size:       fill.Qty,
				Commission: fill.Commission,
				HeldDays:   fill.Order.HeldDays,
				Reason:     fill.Order.Reason,
			})
		}

		if strat.Done() {
			break
		}
	}

	last := bars[res.Bars-1]
	pos, err := b.GetPosition(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("reading position: %w", err)
	}
	acct, err := b.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading account: %w", err)
	}

	res.Open = pos.Qty != 0
	res.FinalValue = sim.Value(map[string]decimal.Decimal{symbol: last.Close})
	res.RealizedPnL = acct.RealizedPnL
	res.Commission = acct.Commission

	bt.log.Info("run complete",
		"symbol", symbol,
		"trades", len(res.Trades),
		"open", res.Open,
		"final", res.FinalValue.StringFixed(2),
	)
	return res, nil
}
