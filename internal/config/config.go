package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when YOLOTRADER_CONFIG is unset.
const DefaultPath = "config/yolotrader.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for yolotrader.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Reddit   Reddit   `yaml:"reddit"`
	OCR      OCR      `yaml:"ocr"`
	Logging  Logging  `yaml:"logging"`
	Extract  Extract  `yaml:"extract"`
	Snapshot Snapshot `yaml:"snapshot"`
	Simulate Simulate `yaml:"simulate"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir      string `yaml:"data_dir"`
	SQLitePath   string `yaml:"sqlite_path"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	ReferenceDir string `yaml:"reference_dir"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Reddit holds the script-app credentials and the search parameters.
type Reddit struct {
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	UserAgent         string `yaml:"user_agent"`
	Subreddit         string `yaml:"subreddit"`
	Query             string `yaml:"query"`
	Sort              string `yaml:"sort"`
	TimeFilter        string `yaml:"time_filter"`
	Limit             int    `yaml:"limit"`
	Workers           int    `yaml:"workers"`
	RequestsPerMinute int    `yaml:"requests_per_min"`
}

// OCR configures the tesseract invocation.
type OCR struct {
	Binary   string        `yaml:"binary"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Extract controls ticker validation.
type Extract struct {
	// Validator is "alpaca" (asset lookup) or "reference" (local CSVs).
	Validator         string   `yaml:"validator"`
	ReferencePrefixes []string `yaml:"reference_prefixes"`
	Workers           int      `yaml:"workers"`
	RateLimitPerMin   int      `yaml:"rate_limit_per_min"`
	Burst             int      `yaml:"burst"`
}

// Snapshot controls the dated JSON snapshots.
type Snapshot struct {
	MaxFiles   int `yaml:"max_files"`
	OffsetDays int `yaml:"offset_days"`
}

// Simulate holds the backtest parameters.
type Simulate struct {
	StartingCash  float64       `yaml:"starting_cash"`
	ExitThreshold float64       `yaml:"exit_threshold"`
	MaxHoldDays   int           `yaml:"max_hold_days"`
	Commission    float64       `yaml:"commission"`
	LookbackDays  int           `yaml:"lookback_days"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file path from YOLOTRADER_CONFIG or DefaultPath.
func Path() string {
	if v := os.Getenv("YOLOTRADER_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, loads a .env file if present, applies environment variable
// overrides and fills defaults. A missing file is not an error: defaults and
// the environment are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	loadDotEnv()
	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// loadDotEnv loads .env from the working directory without overriding
// variables already set in the process environment.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
			}
		}
	}

	setString(&cfg.Storage.DataDir, "DATA_DIR")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.SnapshotDir, "SNAPSHOT_DIR")

	// Standard Alpaca env vars win over the short names.
	setString(&cfg.Alpaca.APIKey, "ALPACA_API_KEY", "APCA_API_KEY_ID")
	setString(&cfg.Alpaca.APISecret, "ALPACA_API_SECRET", "APCA_API_SECRET_KEY")
	setString(&cfg.Alpaca.BaseURL, "ALPACA_BASE_URL", "APCA_API_BASE_URL")
	setString(&cfg.Alpaca.DataURL, "ALPACA_DATA_URL", "APCA_API_DATA_URL")
	setString(&cfg.Alpaca.Feed, "ALPACA_FEED")

	// PRAW_* names are accepted for existing .env files.
	setString(&cfg.Reddit.ClientID, "PRAW_CLIENT_ID", "REDDIT_CLIENT_ID")
	setString(&cfg.Reddit.ClientSecret, "PRAW_CLIENT_SECRET", "REDDIT_CLIENT_SECRET")
	setString(&cfg.Reddit.Username, "PRAW_USERNAME", "REDDIT_USERNAME")
	setString(&cfg.Reddit.Password, "PRAW_PASSWORD", "REDDIT_PASSWORD")
	setString(&cfg.Reddit.UserAgent, "PRAW_USER_AGENT", "REDDIT_USER_AGENT")

	setString(&cfg.OCR.Binary, "TESSERACT_CMD")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("STARTING_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulate.StartingCash = f
		}
	}
}

// applyDefaults fills zero-valued fields.
func (c *Config) applyDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	defInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}

	def(&c.Storage.DataDir, "data")
	def(&c.Storage.SQLitePath, c.Storage.DataDir+"/yolotrader.db")
	def(&c.Storage.SnapshotDir, "monthly_data")
	def(&c.Storage.ReferenceDir, c.Storage.DataDir+"/reference")

	def(&c.Alpaca.Feed, "iex")

	def(&c.Reddit.UserAgent, "yolotrader/1.0")
	def(&c.Reddit.Subreddit, "wallstreetbets")
	def(&c.Reddit.Query, `flair:"YOLO"`)
	def(&c.Reddit.Sort, "new")
	def(&c.Reddit.TimeFilter, "month")
	defInt(&c.Reddit.Limit, 1000)
	defInt(&c.Reddit.Workers, 4)
	defInt(&c.Reddit.RequestsPerMinute, 60)

	def(&c.OCR.Binary, "tesseract")
	if c.OCR.Timeout == 0 {
		c.OCR.Timeout = 30 * time.Second
	}

	def(&c.Logging.Level, "info")
	def(&c.Logging.Format, "text")

	def(&c.Extract.Validator, "alpaca")
	if len(c.Extract.ReferencePrefixes) == 0 {
		c.Extract.ReferencePrefixes = []string{"us_stocks", "us_etf"}
	}
	defInt(&c.Extract.Workers, 8)
	defInt(&c.Extract.RateLimitPerMin, 180)
	defInt(&c.Extract.Burst, 5)

	defInt(&c.Snapshot.MaxFiles, 20)
	defInt(&c.Snapshot.OffsetDays, 32)

	if c.Simulate.StartingCash == 0 {
		c.Simulate.StartingCash = 10000
	}
	if c.Simulate.ExitThreshold == 0 {
		c.Simulate.ExitThreshold = 0.08
	}
	defInt(&c.Simulate.MaxHoldDays, 30)
	defInt(&c.Simulate.LookbackDays, 31)
	defInt(&c.Simulate.RetryAttempts, 3)
	if c.Simulate.RetryDelay == 0 {
		c.Simulate.RetryDelay = time.Second
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Simulate.StartingCash <= 0 {
		errs = append(errs, fmt.Errorf("simulate.starting_cash must be positive, got %v", c.Simulate.StartingCash))
	}
	if c.Simulate.ExitThreshold <= 0 || c.Simulate.ExitThreshold >= 1 {
		errs = append(errs, fmt.Errorf("simulate.exit_threshold must be in (0, 1), got %v", c.Simulate.ExitThreshold))
	}
	if c.Simulate.MaxHoldDays <= 0 {
		errs = append(errs, fmt.Errorf("simulate.max_hold_days must be positive, got %d", c.Simulate.MaxHoldDays))
	}
	if c.Simulate.Commission < 0 {
		errs = append(errs, fmt.Errorf("simulate.commission must not be negative, got %v", c.Simulate.Commission))
	}
	if c.Simulate.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("simulate.lookback_days must be positive, got %d", c.Simulate.LookbackDays))
	}
	if c.Snapshot.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("snapshot.max_files must be positive, got %d", c.Snapshot.MaxFiles))
	}
	switch c.Extract.Validator {
	case "alpaca", "reference":
	default:
		errs = append(errs, fmt.Errorf("extract.validator must be alpaca or reference, got %q", c.Extract.Validator))
	}
	return errors.Join(errs...)
}

// RequireAlpaca reports whether Alpaca credentials are present.
func (c *Config) RequireAlpaca() error {
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		return errors.New("alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}
	return nil
}
