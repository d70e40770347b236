// Package aggregate tallies signal records into frequency tables and picks
// the dominant (ticker, position) pair.
package aggregate

import (
	"errors"
	"sort"

	"yolotrader/internal/domain"
)

// ErrEmptyTable is returned by Dominant when there is nothing to choose from.
var ErrEmptyTable = errors.New("aggregate: frequency table is empty")

// Key identifies one tally bucket.
type Key struct {
	Ticker   string
	Position domain.Position
}

// Entry is one bucket and its count.
type Entry struct {
	Key   Key
	Count int
}

// FrequencyTable counts records per Key and remembers the order in which
// keys were first seen.
type FrequencyTable struct {
	counts map[Key]int
	order  []Key
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[Key]int)}
}

// Add counts one record. Records without a valid position are ignored.
func (t *FrequencyTable) Add(rec domain.SignalRecord) {
	if !rec.Position.Valid() {
		return
	}
	k := Key{Ticker: rec.Ticker, Position: rec.Position}
	if _, ok := t.counts[k]; !ok {
		t.order = append(t.order, k)
	}
	t.counts[k]++
}

// Count returns the tally for k, or zero.
func (t *FrequencyTable) Count(k Key) int {
	return t.counts[k]
}

// Len returns the number of distinct keys.
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Total returns the sum of all counts.
func (t *FrequencyTable) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Entries returns all buckets in first-seen order.
func (t *FrequencyTable) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Key: k, Count: t.counts[k]})
	}
	return out
}

// Sorted returns all buckets by count descending; equal counts keep
// first-seen order.
func (t *FrequencyTable) Sorted() []Entry {
	out := t.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Aggregate tallies records into a new table.
func Aggregate(records []domain.SignalRecord) *FrequencyTable {
	t := NewFrequencyTable()
	for _, r := range records {
		t.Add(r)
	}
	return t
}

// Dominant returns the key with the highest count. Ties go to the key that
// was seen first.
func Dominant(t *FrequencyTable) (Key, error) {
	if t == nil || len(t.order) == 0 {
		return Key{}, ErrEmptyTable
	}
	best := t.order[0]
	for _, k := range t.order[1:] {
		if t.counts[k] > t.counts[best] {
			best = k
		}
	}
	return best, nil
}

// TickerCount is a per-ticker tally that ignores position.
type TickerCount struct {
	Ticker string
	Count  int
}

// ByTicker counts records per ticker, skipping records with no position,
// sorted by count descending with first-seen order among ties.
func ByTicker(records []domain.SignalRecord) []TickerCount {
	idx := make(map[string]int)
	var out []TickerCount
	for _, r := range records {
		if !r.Position.Valid() {
			continue
		}
		i, ok := idx[r.Ticker]
		if !ok {
			i = len(out)
			idx[r.Ticker] = i
			out = append(out, TickerCount{Ticker: r.Ticker})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
