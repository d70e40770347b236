package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

var (
	// ErrInvalidQty is returned for orders with a non-positive quantity.
	ErrInvalidQty = errors.New("broker: order quantity must be positive")
	// ErrInvalidPrice is returned for orders with a non-positive price.
	ErrInvalidPrice = errors.New("broker: order price must be positive")
)

// SimulatorBroker implements Broker for backtesting. It keeps cash and
// positions in memory, charges a flat commission per fill, and allows short
// sales without margin checks. One instance serves one run.
type SimulatorBroker struct {
	account    Account
	commission decimal.Decimal
	positions  map[string]*Position
}

// NewSimulatorBroker creates a SimulatorBroker funded with startingCash that
// charges commission on every fill.
func NewSimulatorBroker(startingCash, commission decimal.Decimal) *SimulatorBroker {
	return &SimulatorBroker{
		account: Account{
			StartingCash: startingCash,
			Cash:         startingCash,
			RealizedPnL:  decimal.Zero,
			Commission:   decimal.Zero,
		},
		commission: commission,
		positions:  make(map[string]*Position),
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// SubmitOrder fills the order immediately at order.Price.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, order *domain.Order) (*Fill, error) {
	if order.Qty <= 0 {
		return nil, fmt.Errorf("%s %s: %w", order.Side, order.Symbol, ErrInvalidQty)
	}
	if !order.Price.IsPositive() {
		return nil, fmt.Errorf("%s %s: %w", order.Side, order.Symbol, ErrInvalidPrice)
	}

	signed := order.Qty
	switch order.Side {
	case domain.OrderSideBuy:
	case domain.OrderSideSell:
		signed = -order.Qty
	default:
		return nil, fmt.Errorf("unknown order side %q", order.Side)
	}

	pos, ok := b.positions[order.Symbol]
	if !ok {
		pos = &Position{Symbol: order.Symbol, AvgPrice: decimal.Zero}
		b.positions[order.Symbol] = pos
	}

	realized := b.apply(pos, signed, order.Price)

	notional := order.Price.Mul(decimal.NewFromInt(order.Qty))
	if signed > 0 {
		b.account.Cash = b.account.Cash.Sub(notional)
	} else {
		b.account.Cash = b.account.Cash.Add(notional)
	}
	b.account.Cash = b.account.Cash.Sub(b.commission)
	b.account.Commission = b.account.Commission.Add(b.commission)
	b.account.RealizedPnL = b.account.RealizedPnL.Add(realized)

	if pos.Qty == 0 {
		delete(b.positions, order.Symbol)
	}

	return &Fill{
		Order:       *order,
		Price:       order.Price,
		Qty:         order.Qty,
		Commission:  b.commission,
		RealizedPnL: realized,
	}, nil
}

// apply adds signed shares at price to pos and returns the profit realized
// by any shares that reduced the existing holding.
func (b *SimulatorBroker) apply(pos *Position, signed int64, price decimal.Decimal) decimal.Decimal {
	realized := decimal.Zero

	// Same direction (or flat): extend and re-average.
	if pos.Qty == 0 || (pos.Qty > 0) == (signed > 0) {
		oldQty := decimal.NewFromInt(abs(pos.Qty))
		addQty := decimal.NewFromInt(abs(signed))
		total := oldQty.Add(addQty)
		pos.AvgPrice = pos.AvgPrice.Mul(oldQty).Add(price.Mul(addQty)).Div(total)
		pos.Qty += signed
		return realized
	}

	closing := min(abs(signed), abs(pos.Qty))
	closed := decimal.NewFromInt(closing)
	if pos.Qty > 0 {
		realized = price.Sub(pos.AvgPrice).Mul(closed)
	} else {
		realized = pos.AvgPrice.Sub(price).Mul(closed)
	}

	pos.Qty += signed
	switch {
	case pos.Qty == 0:
		pos.AvgPrice = decimal.Zero
	case (pos.Qty > 0) == (signed > 0):
		// Flipped through zero: the remainder opens at the fill price.
		pos.AvgPrice = price
	}
	return realized
}

// GetPosition returns the holding in symbol.
func (b *SimulatorBroker) GetPosition(_ context.Context, symbol string) (Position, error) {
	if p, ok := b.positions[symbol]; ok {
		return *p, nil
	}
	return Position{Symbol: symbol, AvgPrice: decimal.Zero}, nil
}

// GetAccount returns a copy of the simulated account.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*Account, error) {
	acct := b.account
	return &acct, nil
}

// Value returns cash plus every open position marked at marks[symbol].
// Positions without a mark are valued at their average price.
func (b *SimulatorBroker) Value(marks map[string]decimal.Decimal) decimal.Decimal {
	v := b.account.Cash
	for sym, p := range b.positions {
		mark, ok := marks[sym]
		if !ok {
			mark = p.AvgPrice
		}
		v = v.Add(mark.Mul(decimal.NewFromInt(p.Qty)))
	}
	return v
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
