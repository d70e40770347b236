package market

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReferenceChecker validates symbols against local CSV listings instead of
// a network lookup. Listings are files named <prefix>_YYYY-MM-DD.csv (latest
// wins) or <prefix>.csv with a "symbol" column.
type ReferenceChecker struct {
	symbols map[string]bool
}

// LoadReferenceChecker loads every prefix in refDir into one symbol set.
func LoadReferenceChecker(refDir string, prefixes ...string) *ReferenceChecker {
	rc := &ReferenceChecker{symbols: make(map[string]bool)}
	for _, prefix := range prefixes {
		path := findLatestRefFile(refDir, prefix)
		for sym := range loadSymbolSet(path, prefix) {
			rc.symbols[sym] = true
		}
	}
	slog.Info("loaded reference symbols", "dir", refDir, "symbols", len(rc.symbols))
	return rc
}

// NewReferenceChecker builds a checker from an explicit symbol list.
func NewReferenceChecker(symbols ...string) *ReferenceChecker {
	rc := &ReferenceChecker{symbols: make(map[string]bool, len(symbols))}
	for _, s := range symbols {
		rc.symbols[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return rc
}

// Len returns the number of known symbols.
func (r *ReferenceChecker) Len() int { return len(r.symbols) }

// Exists reports whether ticker is listed.
func (r *ReferenceChecker) Exists(_ context.Context, ticker string) (bool, error) {
	return r.symbols[strings.ToUpper(ticker)], nil
}

// findLatestRefFile finds the latest date-stamped file matching
// prefix_YYYY-MM-DD.csv in dir. Falls back to prefix.csv if none found.
func findLatestRefFile(dir, prefix string) string {
	pattern := filepath.Join(dir, prefix+"_????-??-??.csv")
	matches, err := filepath.Glob(pattern)
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		return matches[len(matches)-1]
	}
	return filepath.Join(dir, prefix+".csv")
}

// loadSymbolSet reads the symbol column of a CSV file and returns a set of
// uppercase symbols. Returns an empty set if the file is missing.
func loadSymbolSet(path string, label string) map[string]bool {
	set := make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("reference file not found", "label", label, "path", path)
		return set
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		slog.Warn("failed to read CSV header", "label", label, "path", path, "error", err)
		return set
	}

	symbolIdx := 0
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "symbol") {
			symbolIdx = i
			break
		}
	}

	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if len(record) > symbolIdx {
			sym := strings.ToUpper(strings.TrimSpace(record[symbolIdx]))
			if sym != "" {
				set[sym] = true
			}
		}
	}

	return set
}
