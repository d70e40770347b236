package market

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
	"yolotrader/internal/extract"
	"yolotrader/internal/store"
)

type fakeAssets map[string]*alpaca.Asset

func (f fakeAssets) GetAsset(symbol string) (*alpaca.Asset, error) {
	if symbol == "BOOM" {
		return nil, errors.New("connection reset")
	}
	a, ok := f[symbol]
	if !ok {
		return nil, &alpaca.APIError{StatusCode: 404, Message: "asset not found"}
	}
	return a, nil
}

func TestAlpacaChecker(t *testing.T) {
	c := &AlpacaChecker{
		client: fakeAssets{
			"AAPL": {Symbol: "AAPL", Tradable: true, Status: "active"},
			"DEAD": {Symbol: "DEAD", Tradable: false, Status: "inactive"},
		},
		log: slog.Default(),
	}
	ctx := context.Background()

	tests := []struct {
		ticker  string
		want    bool
		wantErr bool
	}{
		{"AAPL", true, false},
		{"DEAD", false, false},
		{"ZZZZ", false, false},
		{"BOOM", false, true},
	}
	for _, tt := range tests {
		got, err := c.Exists(ctx, tt.ticker)
		if (err != nil) != tt.wantErr {
			t.Errorf("Exists(%s) error = %v, wantErr %v", tt.ticker, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Exists(%s) = %v, want %v", tt.ticker, got, tt.want)
		}
	}
}

type fakeBars struct {
	bars []marketdata.Bar
	err  error
	req  marketdata.GetBarsRequest
}

func (f *fakeBars) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, f.err
}

func TestAlpacaHistory(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fb := &fakeBars{bars: []marketdata.Bar{
		// Daily bars are stamped at midnight New York time (04:00 UTC).
		{Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, ny), Open: 100, High: 101, Low: 99, Close: 100.25, Volume: 1000},
		{Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, ny), Open: 100, High: 109, Low: 99, Close: 108.1, Volume: 2000},
		{Timestamp: time.Date(2024, 5, 10, 0, 0, 0, 0, ny), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
	}}
	h := newAlpacaHistory(fb, "iex")

	got, err := h.History(context.Background(), "aapl", domain.NewDate(2024, 5, 1), domain.NewDate(2024, 5, 2))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History returned %d bars, want 2 (outside-window bar dropped)", len(got))
	}
	if got[0].Symbol != "AAPL" || got[0].Date != domain.NewDate(2024, 5, 1) {
		t.Errorf("first bar = %s %s", got[0].Symbol, got[0].Date)
	}
	if !got[1].Close.Equal(decimal.RequireFromString("108.1")) {
		t.Errorf("second close = %s, want 108.1", got[1].Close)
	}
	if fb.req.TimeFrame != marketdata.OneDay {
		t.Errorf("TimeFrame = %v, want OneDay", fb.req.TimeFrame)
	}
	if !fb.req.End.Equal(domain.NewDate(2024, 5, 3).Time) {
		t.Errorf("request End = %v, want day after window end", fb.req.End)
	}
}

func TestAlpacaHistoryError(t *testing.T) {
	h := newAlpacaHistory(&fakeBars{err: errors.New("403 forbidden")}, "iex")
	if _, err := h.History(context.Background(), "AAPL", domain.NewDate(2024, 5, 1), domain.NewDate(2024, 5, 2)); err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestReferenceChecker(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("us_stocks_2024-01-01.csv", "name,symbol\nOld Co,OLD\n")
	write("us_stocks_2024-06-01.csv", "name,symbol\nApple,aapl\nTesla, TSLA \n")
	write("us_etf.csv", "symbol\nSPY\n")

	rc := LoadReferenceChecker(dir, "us_stocks", "us_etf", "missing")
	if rc.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rc.Len())
	}

	ctx := context.Background()
	for ticker, want := range map[string]bool{"AAPL": true, "TSLA": true, "SPY": true, "OLD": false, "GME": false} {
		got, err := rc.Exists(ctx, ticker)
		if err != nil {
			t.Fatalf("Exists(%s): %v", ticker, err)
		}
		if got != want {
			t.Errorf("Exists(%s) = %v, want %v", ticker, got, want)
		}
	}
}

func TestNewReferenceChecker(t *testing.T) {
	rc := NewReferenceChecker("aapl", " msft ")
	ok, _ := rc.Exists(context.Background(), "MSFT")
	if !ok || rc.Len() != 2 {
		t.Errorf("NewReferenceChecker: MSFT=%v len=%d", ok, rc.Len())
	}
}

type countingChecker struct{ calls int }

func (c *countingChecker) Exists(context.Context, string) (bool, error) {
	c.calls++
	return true, nil
}

func TestLimitedChecker(t *testing.T) {
	next := &countingChecker{}
	lc := NewLimitedChecker(next, 0, 1)
	for i := 0; i < 5; i++ {
		if ok, err := lc.Exists(context.Background(), "AAPL"); !ok || err != nil {
			t.Fatalf("Exists = %v, %v", ok, err)
		}
	}
	if next.calls != 5 {
		t.Errorf("delegated %d calls, want 5", next.calls)
	}
}

func TestLimitedCheckerCancelled(t *testing.T) {
	next := &countingChecker{}
	// One token per minute: the second call must wait and sees the cancel.
	lc := NewLimitedChecker(next, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := lc.Exists(ctx, "AAPL"); err != nil {
		t.Fatalf("first Exists: %v", err)
	}
	cancel()
	if _, err := lc.Exists(ctx, "AAPL"); err == nil {
		t.Fatal("expected error after cancel")
	}
	if next.calls != 1 {
		t.Errorf("delegated %d calls, want 1", next.calls)
	}
}

var _ extract.SymbolChecker = (*countingChecker)(nil)

type fakeHistory struct {
	bars []domain.Bar
	err  error
}

func (f *fakeHistory) History(context.Context, string, domain.Date, domain.Date) ([]domain.Bar, error) {
	return f.bars, f.err
}

func TestCachedHistory(t *testing.T) {
	ctx := context.Background()
	bs := store.NewParquetStore(t.TempDir())
	start, end := domain.NewDate(2024, 5, 1), domain.NewDate(2024, 5, 31)

	up := &fakeHistory{bars: []domain.Bar{{
		Symbol: "AAPL", Date: domain.NewDate(2024, 5, 1),
		Open: decimal.NewFromInt(100), High: decimal.NewFromInt(100),
		Low: decimal.NewFromInt(100), Close: decimal.NewFromInt(100),
	}}}
	ch := NewCachedHistory(up, bs)

	got, err := ch.History(ctx, "AAPL", start, end)
	if err != nil || len(got) != 1 {
		t.Fatalf("History (online) = %d bars, %v", len(got), err)
	}

	// Upstream goes down; the written-through bar is served from disk.
	up.bars, up.err = nil, errors.New("unavailable")
	got, err = ch.History(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("History (offline): %v", err)
	}
	if len(got) != 1 || !got[0].Close.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cached bars = %+v", got)
	}

	// Nothing cached for another symbol: the upstream error surfaces.
	if _, err := ch.History(ctx, "MSFT", start, end); err == nil {
		t.Fatal("expected error for uncached symbol with failing upstream")
	}
}
