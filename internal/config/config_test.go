package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "SNAPSHOT_DIR",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"ALPACA_BASE_URL", "APCA_API_BASE_URL", "ALPACA_DATA_URL", "APCA_API_DATA_URL", "ALPACA_FEED",
		"PRAW_CLIENT_ID", "REDDIT_CLIENT_ID", "PRAW_CLIENT_SECRET", "REDDIT_CLIENT_SECRET",
		"PRAW_USERNAME", "REDDIT_USERNAME", "PRAW_PASSWORD", "REDDIT_PASSWORD",
		"PRAW_USER_AGENT", "REDDIT_USER_AGENT",
		"TESSERACT_CMD", "LOG_LEVEL", "LOG_FORMAT", "STARTING_CASH", "YOLOTRADER_CONFIG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yolotrader.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/yolo/data"
  sqlite_path: "/tmp/yolo/yolo.db"
  snapshot_dir: "/tmp/yolo/monthly"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  feed: "sip"
reddit:
  client_id: "cid"
  subreddit: "stocks"
  limit: 250
ocr:
  binary: "/usr/local/bin/tesseract"
  timeout: 5s
logging:
  level: "debug"
  format: "json"
extract:
  validator: "reference"
  workers: 2
snapshot:
  max_files: 10
  offset_days: 30
simulate:
  starting_cash: 25000
  exit_threshold: 0.05
  max_hold_days: 10
  commission: 1.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/yolo/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.SQLitePath != "/tmp/yolo/yolo.db" {
		t.Errorf("Storage.SQLitePath = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Storage.ReferenceDir != "/tmp/yolo/data/reference" {
		t.Errorf("Storage.ReferenceDir default = %q", cfg.Storage.ReferenceDir)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" || cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}

	// -- Reddit --
	if cfg.Reddit.Subreddit != "stocks" || cfg.Reddit.Limit != 250 || cfg.Reddit.ClientID != "cid" {
		t.Errorf("Reddit = %+v", cfg.Reddit)
	}
	if cfg.Reddit.Query != `flair:"YOLO"` {
		t.Errorf("Reddit.Query default = %q", cfg.Reddit.Query)
	}

	// -- OCR --
	if cfg.OCR.Timeout != 5*time.Second || cfg.OCR.Binary != "/usr/local/bin/tesseract" {
		t.Errorf("OCR = %+v", cfg.OCR)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	// -- Extract / Snapshot / Simulate --
	if cfg.Extract.Validator != "reference" || cfg.Extract.Workers != 2 {
		t.Errorf("Extract = %+v", cfg.Extract)
	}
	if cfg.Snapshot.MaxFiles != 10 || cfg.Snapshot.OffsetDays != 30 {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Simulate.StartingCash != 25000 || cfg.Simulate.ExitThreshold != 0.05 ||
		cfg.Simulate.MaxHoldDays != 10 || cfg.Simulate.Commission != 1.5 {
		t.Errorf("Simulate = %+v", cfg.Simulate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Simulate.StartingCash != 10000 || cfg.Simulate.ExitThreshold != 0.08 ||
		cfg.Simulate.MaxHoldDays != 30 || cfg.Simulate.LookbackDays != 31 {
		t.Errorf("Simulate defaults = %+v", cfg.Simulate)
	}
	if cfg.Snapshot.MaxFiles != 20 || cfg.Snapshot.OffsetDays != 32 {
		t.Errorf("Snapshot defaults = %+v", cfg.Snapshot)
	}
	if cfg.Storage.SnapshotDir != "monthly_data" || cfg.Storage.SQLitePath != "data/yolotrader.db" {
		t.Errorf("Storage defaults = %+v", cfg.Storage)
	}
	if cfg.Reddit.Subreddit != "wallstreetbets" || cfg.Reddit.Sort != "new" || cfg.Reddit.TimeFilter != "month" {
		t.Errorf("Reddit defaults = %+v", cfg.Reddit)
	}
	if cfg.Extract.Validator != "alpaca" || cfg.Alpaca.Feed != "iex" {
		t.Errorf("validator/feed defaults = %q/%q", cfg.Extract.Validator, cfg.Alpaca.Feed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "file-key"
storage:
  data_dir: "/from/file"
`)

	t.Setenv("ALPACA_API_KEY", "short-key")
	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	t.Setenv("APCA_API_SECRET_KEY", "canonical-secret")
	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("PRAW_CLIENT_ID", "praw-id")
	t.Setenv("REDDIT_USERNAME", "bob")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STARTING_CASH", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "canonical-key" {
		t.Errorf("Alpaca.APIKey = %q, want canonical APCA value", cfg.Alpaca.APIKey)
	}
	if cfg.Alpaca.APISecret != "canonical-secret" {
		t.Errorf("Alpaca.APISecret = %q", cfg.Alpaca.APISecret)
	}
	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Reddit.ClientID != "praw-id" || cfg.Reddit.Username != "bob" {
		t.Errorf("Reddit = %+v", cfg.Reddit)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Simulate.StartingCash != 5000 {
		t.Errorf("Simulate.StartingCash = %v", cfg.Simulate.StartingCash)
	}
	if err := cfg.RequireAlpaca(); err != nil {
		t.Errorf("RequireAlpaca() = %v", err)
	}
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REDDIT_CLIENT_SECRET=from-dotenv\nLOG_FORMAT=json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("REDDIT_CLIENT_SECRET")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load("absent.yaml")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Reddit.ClientSecret != "from-dotenv" || cfg.Logging.Format != "json" {
		t.Errorf(".env not applied: secret=%q format=%q", cfg.Reddit.ClientSecret, cfg.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulate.StartingCash = -1
	cfg.Simulate.ExitThreshold = 1.5
	cfg.Simulate.MaxHoldDays = -3
	cfg.Extract.Validator = "yfinance"

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"starting_cash", "exit_threshold", "max_hold_days", "validator"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestRequireAlpaca(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireAlpaca(); err == nil {
		t.Fatal("RequireAlpaca() should fail without credentials")
	}
}

func TestPath(t *testing.T) {
	clearEnv(t)
	if Path() != DefaultPath {
		t.Errorf("Path() = %q, want %q", Path(), DefaultPath)
	}
	t.Setenv("YOLOTRADER_CONFIG", "/etc/yolo.yaml")
	if Path() != "/etc/yolo.yaml" {
		t.Errorf("Path() = %q", Path())
	}
}
