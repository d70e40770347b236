// Package strategy defines the Strategy interface, the single-trade follow
// strategy driven by the dominant signal, and the Backtester that replays
// price bars through it.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// Strategy is the interface that all bar-driven strategies implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// OnBar is called once per bar in date order with the cash currently
	// available. It returns zero or more market orders to fill at the bar.
	OnBar(ctx context.Context, bar domain.Bar, cash decimal.Decimal) ([]domain.Order, error)

	// Done reports whether the strategy will emit no further orders.
	Done() bool
}

// Config parameterises a simulation run.
type Config struct {
	StartingCash decimal.Decimal
	// ExitThreshold is the fractional move from the entry price, in either
	// direction, that closes the position.
	ExitThreshold decimal.Decimal
	MaxHoldDays   int
	// Commission is charged per fill.
	Commission decimal.Decimal
}

// DefaultConfig matches the monthly run: $10,000, 8% band, 30 day hold.
func DefaultConfig() Config {
	return Config{
		StartingCash:  decimal.NewFromInt(10000),
		ExitThreshold: decimal.RequireFromString("0.08"),
		MaxHoldDays:   30,
		Commission:    decimal.Zero,
	}
}

// Validate reports a configuration that cannot produce a meaningful run.
func (c Config) Validate() error {
	var errs []error
	if !c.StartingCash.IsPositive() {
		errs = append(errs, fmt.Errorf("starting cash must be positive, got %s", c.StartingCash))
	}
	if !c.ExitThreshold.IsPositive() {
		errs = append(errs, fmt.Errorf("exit threshold must be positive, got %s", c.ExitThreshold))
	}
	if c.MaxHoldDays <= 0 {
		errs = append(errs, fmt.Errorf("max hold days must be positive, got %d", c.MaxHoldDays))
	}
	if c.Commission.IsNegative() {
		errs = append(errs, fmt.Errorf("commission must not be negative, got %s", c.Commission))
	}
	return errors.Join(errs...)
}
