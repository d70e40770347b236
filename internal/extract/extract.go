// Package extract turns free-form post text into validated ticker/position
// signals.
package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"yolotrader/internal/domain"
)

var (
	// candidatePattern matches word-bounded runs of 2-5 uppercase letters.
	candidatePattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

	// positionPattern finds the first call/put keyword or a lone C/P between
	// whitespace. Group 1 holds the keyword, group 2 the lone letter.
	positionPattern = regexp.MustCompile(`(?i)\b(call|put)s?\b|\s([cp])\s`)
)

// SymbolChecker reports whether a ticker is a real, tradable instrument.
type SymbolChecker interface {
	Exists(ctx context.Context, ticker string) (bool, error)
}

// SymbolCheckerFunc adapts a function to SymbolChecker.
type SymbolCheckerFunc func(ctx context.Context, ticker string) (bool, error)

// Exists calls f.
func (f SymbolCheckerFunc) Exists(ctx context.Context, ticker string) (bool, error) {
	return f(ctx, ticker)
}

// Candidates returns the non-denylisted ticker-shaped tokens of text,
// deduplicated in first-seen order.
func Candidates(text string) []string {
	tokens := candidatePattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if Denied(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// ClassifyPosition returns the direction stated in text. Titles without an
// explicit direction default to a call because most YOLO posts are calls;
// image text without one stays unknown.
func ClassifyPosition(text string, isTitle bool) domain.Position {
	m := positionPattern.FindStringSubmatch(text)
	if m != nil {
		word := m[1]
		if word == "" {
			word = m[2]
		}
		return domain.Position(strings.ToUpper(word[:1]))
	}
	if isTitle {
		return domain.PositionCall
	}
	return domain.PositionUnknown
}

// Extractor validates ticker candidates against a SymbolChecker.
type Extractor struct {
	checker SymbolChecker
	workers int
	log     *slog.Logger
}

// New creates an Extractor. workers bounds how many items ExtractBatch
// processes at once; values below 1 mean one at a time.
func New(checker SymbolChecker, workers int, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		checker: checker,
		workers: max(workers, 1),
		log:     log.With("component", "extract"),
	}
}

// Extract returns the signal contained in text. Candidates that fail
// validation, or whose lookup errors, are dropped and logged. The single
// position found applies to every ticker in the text.
func (e *Extractor) Extract(ctx context.Context, text string, isTitle bool) domain.Signal {
	sig := domain.Signal{
		Tickers:  []string{},
		Position: ClassifyPosition(text, isTitle),
	}

	for _, cand := range Candidates(text) {
		ok, err := e.checker.Exists(ctx, cand)
		if err != nil {
			e.log.Warn("symbol lookup failed", "ticker", cand, "error", err)
			continue
		}
		if !ok {
			e.log.Debug("dropping unknown ticker", "ticker", cand)
			continue
		}
		sig.Tickers = append(sig.Tickers, cand)
	}
	return sig
}

// ExtractBatch extracts every item concurrently and returns the signals in
// item order. It only fails when ctx is cancelled.
func (e *Extractor) ExtractBatch(ctx context.Context, items []domain.RawItem) ([]domain.Signal, error) {
	signals := make([]domain.Signal, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			signals[i] = e.Extract(gctx, item.Text, item.IsTitle)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signals, nil
}
