// Package market implements the symbol-validity and price-history
// boundaries on top of the Alpaca APIs, local reference files and the
// Parquet bar cache.
package market

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"yolotrader/internal/domain"
	"yolotrader/internal/extract"
)

// History returns daily bars for symbol within [start, end], ascending by
// date. An empty slice is a valid answer.
type History interface {
	History(ctx context.Context, symbol string, start, end domain.Date) ([]domain.Bar, error)
}

// Compile-time interface checks.
var (
	_ extract.SymbolChecker = (*LimitedChecker)(nil)
	_ extract.SymbolChecker = (*AlpacaChecker)(nil)
	_ extract.SymbolChecker = (*ReferenceChecker)(nil)
	_ History               = (*AlpacaHistory)(nil)
	_ History               = (*CachedHistory)(nil)
)

// LimitedChecker paces calls to an underlying checker. It is safe for
// concurrent use when the wrapped checker is.
type LimitedChecker struct {
	next    extract.SymbolChecker
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewLimitedChecker allows perMinute lookups per minute with a burst of
// burst. A non-positive perMinute disables pacing.
func NewLimitedChecker(next extract.SymbolChecker, perMinute, burst int) *LimitedChecker {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	return &LimitedChecker{
		next:    next,
		limiter: rate.NewLimiter(limit, max(burst, 1)),
		log:     slog.Default().With("component", "symbol-limiter"),
	}
}

// Exists waits for a token and then delegates.
func (c *LimitedChecker) Exists(ctx context.Context, ticker string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("waiting for lookup slot: %w", err)
	}
	return c.next.Exists(ctx, ticker)
}
