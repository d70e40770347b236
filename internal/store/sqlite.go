package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ SignalStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot TEXT NOT NULL,
	date     TEXT NOT NULL,
	ticker   TEXT NOT NULL,
	position TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_date ON signals(date);

CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    INTEGER NOT NULL,
	snapshot      TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	position      TEXT NOT NULL,
	count         INTEGER NOT NULL,
	starting_cash TEXT NOT NULL,
	final_value   TEXT NOT NULL,
	trades        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	date       TEXT NOT NULL,
	action     TEXT NOT NULL,
	price      TEXT NOT NULL,
	size       INTEGER NOT NULL,
	commission TEXT NOT NULL,
	held_days  INTEGER NOT NULL,
	reason     TEXT NOT NULL
);
`

// SQLiteStore implements SignalStore and RunStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignals inserts records in one transaction.
func (s *SQLiteStore) SaveSignals(ctx context.Context, snapshot string, records []domain.SignalRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO signals (snapshot, date, ticker, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, snapshot, r.Date.String(), r.Ticker, string(r.Position)); err != nil {
			return fmt.Errorf("inserting signal %s: %w", r.Ticker, err)
		}
	}
	return tx.Commit()
}

// ListSignals returns records dated on or after since, oldest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, since domain.Date) ([]domain.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, ticker, position FROM signals WHERE date >= ? ORDER BY date, id`, since.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SignalRecord
	for rows.Next() {
		var date, ticker, pos string
		if err := rows.Scan(&date, &ticker, &pos); err != nil {
			return nil, err
		}
		d, err := domain.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SignalRecord{Date: d, Ticker: ticker, Position: domain.Position(pos)})
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts the run summary and its trade log in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, trades []domain.TradeLogEntry) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Trades = len(trades)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, snapshot, symbol, position, count, starting_cash, final_value, trades)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt.UnixMilli(), run.Snapshot, run.Symbol, string(run.Position), run.Count,
		run.StartingCash.String(), run.FinalValue.String(), run.Trades)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, t := range trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, date, action, price, size, commission, held_days, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Date.String(), string(t.Action), t.Price.String(), t.Size,
			t.Commission.String(), t.HeldDays, t.Reason); err != nil {
			return fmt.Errorf("inserting trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	run.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, snapshot, symbol, position, count, starting_cash, final_value, trades
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r           Run
			created     int64
			pos         string
			start, last string
		)
		if err := rows.Scan(&r.ID, &created, &r.Snapshot, &r.Symbol, &pos, &r.Count, &start, &last, &r.Trades); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created)
		r.Position = domain.Position(pos)
		if r.StartingCash, err = decimal.NewFromString(start); err != nil {
			return nil, fmt.Errorf("run %d starting cash: %w", r.ID, err)
		}
		if r.FinalValue, err = decimal.NewFromString(last); err != nil {
			return nil, fmt.Errorf("run %d final value: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTrades returns the trade log of one run in insertion order.
func (s *SQLiteStore) ListTrades(ctx context.Context, runID int64) ([]domain.TradeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, action, price, size, commission, held_days, reason
		 FROM trades WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TradeLogEntry
	for rows.Next() {
		var (
			t                 domain.TradeLogEntry
			date, action      string
			price, commission string
		)
		if err := rows.Scan(&date, &action, &price, &t.Size, &commission, &t.HeldDays, &t.Reason); err != nil {
			return nil, err
		}
		if t.Date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
		t.Action = domain.TradeAction(action)
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if t.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
