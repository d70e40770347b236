// Package broker defines the Broker interface used by backtests and provides
// an in-memory paper broker that fills market orders at the quoted price.
package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// Broker abstracts order execution and account state for a single run.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator").
	Name() string

	// SubmitOrder executes a market order and returns the resulting fill.
	SubmitOrder(ctx context.Context, order *domain.Order) (*Fill, error)

	// GetPosition returns the current holding in symbol. A symbol that is
	// not held returns a zero Position.
	GetPosition(ctx context.Context, symbol string) (Position, error)

	// GetAccount returns a snapshot of cash and realized profit.
	GetAccount(ctx context.Context) (*Account, error)
}

// Fill is the executed result of an order.
type Fill struct {
	Order      domain.Order
	Price      decimal.Decimal
	Qty        int64
	Commission decimal.Decimal
	// RealizedPnL is the profit or loss closed out by this fill, before
	// commission.
	RealizedPnL decimal.Decimal
}

// Position is a signed holding: positive quantities are long, negative short.
type Position struct {
	Symbol   string
	Qty      int64
	AvgPrice decimal.Decimal
}

// Side returns the direction of the holding.
func (p Position) Side() domain.Side {
	switch {
	case p.Qty > 0:
		return domain.SideLong
	case p.Qty < 0:
		return domain.SideShort
	default:
		return domain.SideNone
	}
}

// Account holds cash and cumulative trading results.
type Account struct {
	StartingCash decimal.Decimal
	Cash         decimal.Decimal
	RealizedPnL  decimal.Decimal
	Commission   decimal.Decimal
}
