package market

import (
	"context"
	"fmt"
	"log/slog"

	"yolotrader/internal/domain"
	"yolotrader/internal/store"
)

// CachedHistory fetches from an upstream History and writes every result
// through to a BarStore. When the upstream fails it serves whatever the
// store already holds for the window.
type CachedHistory struct {
	upstream History
	store    store.BarStore
	log      *slog.Logger
}

// NewCachedHistory wraps upstream with a write-through cache.
func NewCachedHistory(upstream History, s store.BarStore) *CachedHistory {
	return &CachedHistory{
		upstream: upstream,
		store:    s,
		log:      slog.Default().With("history", "cached"),
	}
}

// History implements History.
func (c *CachedHistory) History(ctx context.Context, symbol string, start, end domain.Date) ([]domain.Bar, error) {
	bars, err := c.upstream.History(ctx, symbol, start, end)
	if err == nil {
		if len(bars) > 0 {
			if werr := c.store.WriteBars(ctx, bars); werr != nil {
				c.log.Warn("caching bars failed", "symbol", symbol, "error", werr)
			}
		}
		return bars, nil
	}

	cached, cerr := c.store.ReadBars(ctx, symbol, start, end)
	if cerr != nil || len(cached) == 0 {
		return nil, fmt.Errorf("fetching %s history: %w", symbol, err)
	}
	c.log.Warn("upstream history failed, serving cached bars",
		"symbol", symbol,
		"bars", len(cached),
		"error", err,
	)
	return cached, nil
}
