// Package snapshot persists signal records as one JSON file per capture day
// and keeps only the most recent files.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"yolotrader/internal/domain"
)

const ext = ".json"

// DefaultMaxFiles is the retention limit used when none is configured.
const DefaultMaxFiles = 20

var (
	// ErrNotFound is returned by Load for a name with no file on disk.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrNoSnapshots is returned by Latest when the directory is empty.
	ErrNoSnapshots = errors.New("snapshot: no snapshots stored")
)

// Store is a directory of YYYY-MM-DD.json files, each an indented JSON array
// of SignalRecords.
type Store struct {
	mu       sync.Mutex
	dir      string
	maxFiles int
	log      *slog.Logger
}

// NewStore creates a Store rooted at dir. A non-positive maxFiles falls back
// to DefaultMaxFiles.
func NewStore(dir string, maxFiles int, log *slog.Logger) *Store {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, maxFiles: maxFiles, log: log}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// Name returns the snapshot name for a date.
func Name(date domain.Date) string { return date.String() }

// Save writes records as the snapshot for date, replacing any existing file
// of that name, then evicts the oldest files beyond the retention limit.
// It returns the snapshot name.
func (s *Store) Save(date domain.Date, records []domain.SignalRecord) (string, error) {
	if records == nil {
		records = []domain.SignalRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	name := Name(date)
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot %s: %w", name, err)
	}
	s.log.Info("saved snapshot", "name", name, "records", len(records))

	if err := s.evict(); err != nil {
		return name, err
	}
	return name, nil
}

// Load reads the snapshot called name. The ".json" suffix is optional.
func (s *Store) Load(name string) ([]domain.SignalRecord, error) {
	name = strings.TrimSuffix(name, ext)
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	var records []domain.SignalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", name, err)
	}
	return records, nil
}

// List returns snapshot names in listing order (oldest first).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the name of the last snapshot in listing order.
func (s *Store) Latest() (string, error) {
	names, err := s.List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoSnapshots
	}
	return names[len(names)-1], nil
}

// LoadAll concatenates every snapshot in listing order.
func (s *Store) LoadAll() ([]domain.SignalRecord, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	var all []domain.SignalRecord
	for _, n := range names {
		recs, err := s.Load(n)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// evict deletes the first files in listing order while more than maxFiles
// remain. Must be called with mu held.
func (s *Store) evict() error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for len(names) > s.maxFiles {
		oldest := names[0]
		if err := os.Remove(s.path(oldest)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("evicting snapshot %s: %w", oldest, err)
		}
		s.log.Info("evicted snapshot", "name", oldest)
		names = names[1:]
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+ext)
}
