package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"

	"yolotrader/internal/config"
	"yolotrader/internal/engine"
	"yolotrader/internal/extract"
	"yolotrader/internal/gather/reddit"
	"yolotrader/internal/market"
	"yolotrader/internal/ocr"
	"yolotrader/internal/report"
	"yolotrader/internal/snapshot"
	"yolotrader/internal/store"
	"yolotrader/internal/strategy"
	"yolotrader/internal/util"
)

// app holds everything a command needs. Only the pieces a command asks
// for are built, so reading snapshots works without any credentials.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *store.SQLiteStore
	snaps  *snapshot.Store
	engine *engine.Engine
	out    *report.Renderer
}

// needs selects the collaborators to build.
type needs struct {
	gather   bool // Reddit, OCR and ticker validation
	simulate bool // Alpaca price history and the backtester
	db       bool // SQLite history
}

func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(out io.Writer, n needs) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(log)

	a := &app{
		cfg:   cfg,
		log:   log,
		snaps: snapshot.NewStore(cfg.Storage.SnapshotDir, cfg.Snapshot.MaxFiles, log),
		out:   report.New(out, barWidth, useColor(out)),
	}
	deps := engine.Deps{Snapshots: a.snaps, Log: log}

	if n.db || n.gather || n.simulate {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		deps.Signals = db
		deps.Runs = db
	}

	if n.gather || n.simulate {
		if err := cfg.RequireAlpaca(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if n.gather {
		checker, err := a.checker()
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Extractor = extract.New(checker, cfg.Extract.Workers, log)

		reader := ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.Timeout)
		reader.Language = cfg.OCR.Language

		r := cfg.Reddit
		deps.Gatherer = reddit.New(reddit.Config{
			ClientID:          r.ClientID,
			ClientSecret:      r.ClientSecret,
			Username:          r.Username,
			Password:          r.Password,
			UserAgent:         r.UserAgent,
			Subreddit:         r.Subreddit,
			Query:             r.Query,
			Sort:              r.Sort,
			TimeFilter:        r.TimeFilter,
			Limit:             r.Limit,
			RequestsPerMinute: r.RequestsPerMinute,
			Workers:           r.Workers,
		}, reader, nil)
	}

	if n.simulate {
		al := cfg.Alpaca
		deps.History = market.NewCachedHistory(
			market.NewAlpacaHistory(al.APIKey, al.APISecret, al.DataURL, al.Feed),
			store.NewParquetStore(cfg.Storage.DataDir),
		)
		sc := strategy.Config{
			StartingCash:  decimal.NewFromFloat(cfg.Simulate.StartingCash),
			ExitThreshold: decimal.NewFromFloat(cfg.Simulate.ExitThreshold),
			MaxHoldDays:   cfg.Simulate.MaxHoldDays,
			Commission:    decimal.NewFromFloat(cfg.Simulate.Commission),
		}
		if err := sc.Validate(); err != nil {
			a.Close()
			return nil, err
		}
		deps.Backtester = strategy.NewBacktester(sc, log)
	}

	a.engine = engine.New(deps, engine.Options{
		OffsetDays:    cfg.Snapshot.OffsetDays,
		LookbackDays:  cfg.Simulate.LookbackDays,
		RetryAttempts: cfg.Simulate.RetryAttempts,
		RetryDelay:    cfg.Simulate.RetryDelay,
	})
	return a, nil
}

func (a *app) checker() (extract.SymbolChecker, error) {
	c := a.cfg
	switch c.Extract.Validator {
	case "reference":
		ref := market.LoadReferenceChecker(c.Storage.ReferenceDir, c.Extract.ReferencePrefixes...)
		if ref.Len() == 0 {
			return nil, fmt.Errorf("no reference symbols under %s", c.Storage.ReferenceDir)
		}
		return ref, nil
	default:
		alpaca := market.NewAlpacaChecker(c.Alpaca.APIKey, c.Alpaca.APISecret, c.Alpaca.BaseURL)
		return market.NewLimitedChecker(alpaca, c.Extract.RateLimitPerMin, c.Extract.Burst), nil
	}
}

// Close releases the SQLite handle.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// isNoData reports errors that mean "nothing stored yet" rather than
// a failure.
func isNoData(err error) bool {
	return errors.Is(err, snapshot.ErrNoSnapshots) || errors.Is(err, snapshot.ErrNotFound)
}
