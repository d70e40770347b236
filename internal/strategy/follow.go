package strategy

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*Follow)(nil)

// State is the lifecycle stage of a Follow strategy.
type State int

const (
	StateFlat State = iota
	StateHolding
)

func (s State) String() string {
	if s == StateHolding {
		return "holding"
	}
	return "flat"
}

// Follow takes one position on the first bar and closes it when the close
// moves ExitThreshold away from the entry in either direction or after
// MaxHoldDays calendar days. A put signal opens a long and a call signal
// opens a short. There is no re-entry after the exit.
type Follow struct {
	symbol   string
	position domain.Position
	up       decimal.Decimal // entry multiplier for the upper band
	down     decimal.Decimal // entry multiplier for the lower band
	maxHold  int
	log      *slog.Logger

	state      State
	started    bool
	done       bool
	side       domain.Side
	size       int64
	entryPrice decimal.Decimal
	entryDate  domain.Date
}

// NewFollow creates a Follow strategy for symbol trading position.
func NewFollow(symbol string, position domain.Position, cfg Config, log *slog.Logger) *Follow {
	if log == nil {
		log = slog.Default()
	}
	one := decimal.NewFromInt(1)
	return &Follow{
		symbol:   symbol,
		position: position,
		up:       one.Add(cfg.ExitThreshold),
		down:     one.Sub(cfg.ExitThreshold),
		maxHold:  cfg.MaxHoldDays,
		log:      log.With("strategy", "follow", "symbol", symbol, "position", string(position)),
	}
}

// Name returns "follow".
func (f *Follow) Name() string { return "follow" }

// State returns the current lifecycle stage.
func (f *Follow) State() State { return f.state }

// Done reports whether the strategy has finished trading.
func (f *Follow) Done() bool { return f.done }

// OnBar advances the state machine by one bar.
func (f *Follow) OnBar(_ context.Context, bar domain.Bar, cash decimal.Decimal) ([]domain.Order, error) {
	if f.done {
		return nil, nil
	}

	if !f.started {
		f.started = true
		return f.enter(bar, cash), nil
	}

	if f.state != StateHolding {
		return nil, nil
	}

	held := bar.Date.DaysSince(f.entryDate)
	reason := ""
	switch {
	case bar.Close.GreaterThanOrEqual(f.entryPrice.Mul(f.up)):
		reason = domain.ReasonPriceUp
	case bar.Close.LessThanOrEqual(f.entryPrice.Mul(f.down)):
		reason = domain.ReasonPriceDown
	case held >= f.maxHold:
		reason = domain.ReasonMaxHold
	default:
		return nil, nil
	}

	side := domain.OrderSideSell
	if f.side == domain.SideShort {
		side = domain.OrderSideBuy
	}
	f.log.Info("exit",
		"date", bar.Date.String(),
		"price", bar.Close.StringFixed(2),
		"heldDays", held,
		"reason", reason,
	)

	f.state = StateFlat
	f.side = domain.SideNone
	f.done = true
	return []domain.Order{{
		Symbol:   f.symbol,
		Side:     side,
		Qty:      f.size,
		Price:    bar.Close,
		Date:     bar.Date,
		Action:   domain.ActionExit,
		Reason:   reason,
		HeldDays: held,
	}}, nil
}

// enter handles the first bar. Any failure to open leaves the strategy flat
// for the rest of the run.
func (f *Follow) enter(bar domain.Bar, cash decimal.Decimal) []domain.Order {
	var (
		side   domain.Side
		oside  domain.OrderSide
		action domain.TradeAction
	)
	switch f.position {
	case domain.PositionPut:
		side, oside, action = domain.SideLong, domain.OrderSideBuy, domain.ActionEnterLong
	case domain.PositionCall:
		side, oside, action = domain.SideShort, domain.OrderSideSell, domain.ActionEnterShort
	default:
		f.log.Error("invalid position, no trade will be placed")
		f.done = true
		return nil
	}

	if !bar.Close.IsPositive() {
		f.log.Error("non-positive close on entry bar", "date", bar.Date.String(), "close", bar.Close.String())
		f.done = true
		return nil
	}
	size := cash.Div(bar.Close).Floor().IntPart()
	if size <= 0 {
		f.log.Warn("cash does not cover one share", "cash", cash.StringFixed(2), "close", bar.Close.StringFixed(2))
		f.done = true
		return nil
	}

	f.state = StateHolding
	f.side = side
	f.size = size
	f.entryPrice = bar.Close
	f.entryDate = bar.Date
	f.log.Info("enter",
		"side", string(side),
		"date", bar.Date.String(),
		"price", bar.Close.StringFixed(2),
		"size", size,
	)

	return []domain.Order{{
		Symbol: f.symbol,
		Side:   oside,
		Qty:    size,
		Price:  bar.Close,
		Date:   bar.Date,
		Action: action,
		Reason: domain.ReasonEntry,
	}}
}
