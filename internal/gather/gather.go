// Package gather defines the boundary between the feed that supplies raw
// posts and the extraction pipeline.
package gather

import (
	"context"

	"yolotrader/internal/domain"
)

// Gatherer is the interface for all feed sources.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Gather collects one batch of raw items. Items are returned in feed
	// order; a failure on one item is logged and skipped by the gatherer,
	// only failures of the feed itself are returned.
	Gather(ctx context.Context) ([]domain.RawItem, error)
}

// Static is a Gatherer over a fixed list of items, used for replays and
// tests.
type Static struct {
	Label string
	Items []domain.RawItem
}

var _ Gatherer = (*Static)(nil)

// Name returns the configured label, or "static".
func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

// Gather returns a copy of the items.
func (s *Static) Gather(ctx context.Context) ([]domain.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.RawItem(nil), s.Items...), nil
}
