package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

var day0 = domain.NewDate(2024, 1, 2)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// bar builds a bar offset days after day0 closing at price.
func bar(offset int, price string) domain.Bar {
	p := dec(price)
	return domain.Bar{Symbol: "AAPL", Date: day0.AddDays(offset), Open: p, High: p, Low: p, Close: p, Volume: 1000}
}

func newTestBacktester(mutate func(*Config)) *Backtester {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewBacktester(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunEmptyBars(t *testing.T) {
	bt := newTestBacktester(nil)
	_, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, nil)
	if !errors.Is(err, ErrEmptyBars) {
		t.Errorf("Run(no bars) error = %v, want ErrEmptyBars", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	bt := newTestBacktester(func(c *Config) { c.MaxHoldDays = 0 })
	if _, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{bar(0, "100")}); err == nil {
		t.Error("Run accepted a zero max hold")
	}
}

func TestRunUpperBoundaryIsInclusive(t *testing.T) {
	bt := newTestBacktester(nil)

	res, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{
		bar(0, "100"),
		bar(1, "107.99"),
		bar(2, "108.00"),
		bar(3, "120"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2: %+v", len(res.Trades), res.Trades)
	}
	entry, exit := res.Trades[0], res.Trades[1]
	if entry.Action != domain.ActionEnterLong || entry.Size != 100 || !entry.Price.Equal(dec("100")) {
		t.Errorf("entry = %+v, want enter-long 100 @ 100", entry)
	}
	if exit.Action != exitAction || exit.Date != day0.AddDays(2) || exit.Reason != domain.ReasonPriceUp {
		t.Errorf("exit = %+v, want price-up exit on day 2", exit)
	}
	if exit.HeldDays != 2 {
		t.Errorf("exit held days = %d, want 2", exit.HeldDays)
	}
	if !res.FinalValue.Equal(dec("10800")) {
		t.Errorf("final value = %s, want 10800", res.FinalValue)
	}
	if res.Open {
		t.Error("position reported open after exit")
	}
	if res.Bars != 3 {
		t.Errorf("bars consumed = %d, want 3", res.Bars)
	}
}

const exitAction = domain.ActionExit

func TestRunLowerBoundaryIsInclusive(t *testing.T) {
	bt := newTestBacktester(nil)

	res, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{
		bar(0, "100"),
		bar(1, "92.01"),
		bar(2, "92.00"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 || res.Trades[1].Reason != domain.ReasonPriceDown || res.Trades[1].Date != day0.AddDays(2) {
		t.Fatalf("trades = %+v, want a price-down exit on day 2", res.Trades)
	}
	if !res.FinalValue.Equal(dec("9200")) {
		t.Errorf("final value = %s, want 9200", res.FinalValue)
	}
}

func TestRunCallOpensShort(t *testing.T) {
	bt := newTestBacktester(nil)

	res, err := bt.Run(context.Background(), "AAPL", domain.PositionCall, []domain.Bar{
		bar(0, "50"),
		bar(1, "45"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
	if res.Trades[0].Action != domain.ActionEnterShort || res.Trades[0].Size != 200 {
		t.Errorf("entry = %+v, want enter-short 200", res.Trades[0])
	}
	if res.Trades[1].Reason != domain.ReasonPriceDown {
		t.Errorf("exit reason = %q, want %q", res.Trades[1].Reason, domain.ReasonPriceDown)
	}
	// Short 200 @ 50, cover @ 45.
	if !res.RealizedPnL.Equal(dec("1000")) {
		t.Errorf("realized = %s, want 1000", res.RealizedPnL)
	}
	if !res.FinalValue.Equal(dec("11000")) {
		t.Errorf("final value = %s, want 11000", res.FinalValue)
	}
}

func TestRunMaxHold(t *testing.T) {
	tests := []struct {
		name     string
		offsets  []int
		wantDate int
	}{
		{"exact day", []int{0, 10, 29, 30, 31}, 30},
		{"first bar after", []int{0, 10, 29, 32, 33}, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := make([]domain.Bar, 0, len(tt.offsets))
			for _, off := range tt.offsets {
				bars = append(bars, bar(off, "101"))
			}
			bars[0] = bar(0, "100")

			res, err := newTestBacktester(nil).Run(context.Background(), "AAPL", domain.PositionPut, bars)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(res.Trades) != 2 {
				t.Fatalf("trades = %d, want 2", len(res.Trades))
			}
			exit := res.Trades[1]
			if exit.Reason != domain.ReasonMaxHold || exit.Date != day0.AddDays(tt.wantDate) || exit.HeldDays != tt.wantDate {
				t.Errorf("exit = %+v, want max-hold on day %d", exit, tt.wantDate)
			}
		})
	}
}

func TestRunPriceExitTakesPriorityOverMaxHold(t *testing.T) {
	res, err := newTestBacktester(nil).Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{
		bar(0, "100"),
		bar(40, "110"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Trades[1].Reason != domain.ReasonPriceUp {
		t.Errorf("exit reason = %q, want %q", res.Trades[1].Reason, domain.ReasonPriceUp)
	}
}

func TestRunInvalidPositionNeverTrades(t *testing.T) {
	for _, pos := range []domain.Position{domain.PositionUnknown, "X"} {
		res, err := newTestBacktester(nil).Run(context.Background(), "AAPL", pos, []domain.Bar{
			bar(0, "100"),
			bar(1, "200"),
		})
		if err != nil {
			t.Fatalf("Run(%q): %v", pos, err)
		}
		if len(res.Trades) != 0 {
			t.Errorf("Run(%q) trades = %+v, want none", pos, res.Trades)
		}
		if !res.FinalValue.Equal(res.StartingCash) {
			t.Errorf("Run(%q) final = %s, want starting cash", pos, res.FinalValue)
		}
	}
}

func TestRunOpenPositionMarkedToMarket(t *testing.T) {
	res, err := newTestBacktester(nil).Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{
		bar(0, "100"),
		bar(1, "103"),
		bar(2, "105"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Open || len(res.Trades) != 1 {
		t.Fatalf("open = %v trades = %d, want open with one entry", res.Open, len(res.Trades))
	}
	if !res.FinalValue.Equal(dec("10500")) {
		t.Errorf("final value = %s, want 10500", res.FinalValue)
	}
	if !res.Return().Equal(dec("0.05")) {
		t.Errorf("return = %s, want 0.05", res.Return())
	}
}

func TestRunCommissionAndSizing(t *testing.T) {
	bt := newTestBacktester(func(c *Config) {
		c.StartingCash = dec("1000")
		c.Commission = dec("1.5")
		c.ExitThreshold = dec("0.10")
	})

	res, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{
		bar(0, "333"),
		bar(1, "366.3"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Trades[0].Size != 3 {
		t.Errorf("entry size = %d, want floor(1000/333) = 3", res.Trades[0].Size)
	}
	// 1000 - 999 - 1.5 + 1098.9 - 1.5
	if !res.FinalValue.Equal(dec("1096.9")) {
		t.Errorf("final value = %s, want 1096.9", res.FinalValue)
	}
	if !res.Commission.Equal(dec("3")) {
		t.Errorf("commission = %s, want 3", res.Commission)
	}
}

func TestRunCannotAffordShare(t *testing.T) {
	bt := newTestBacktester(func(c *Config) { c.StartingCash = dec("50") })
	res, err := bt.Run(context.Background(), "AAPL", domain.PositionPut, []domain.Bar{bar(0, "100"), bar(1, "200")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %+v, want none", res.Trades)
	}
}

func TestFollowStateTransitions(t *testing.T) {
	f := NewFollow("AAPL", domain.PositionPut, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	cash := dec("10000")

	if f.State() != StateFlat || f.Done() {
		t.Fatalf("initial state = %v done=%v, want flat and not done", f.State(), f.Done())
	}
	orders, _ := f.OnBar(ctx, bar(0, "100"), cash)
	if len(orders) != 1 || f.State() != StateHolding {
		t.Fatalf("after entry: orders=%d state=%v", len(orders), f.State())
	}
	orders, _ = f.OnBar(ctx, bar(1, "101"), decimal.Zero)
	if len(orders) != 0 || f.State() != StateHolding {
		t.Fatalf("inside band: orders=%d state=%v", len(orders), f.State())
	}
	orders, _ = f.OnBar(ctx, bar(2, "91"), decimal.Zero)
	if len(orders) != 1 || orders[0].Side != domain.OrderSideSell || f.State() != StateFlat || !f.Done() {
		t.Fatalf("after exit: orders=%+v state=%v done=%v", orders, f.State(), f.Done())
	}
	orders, _ = f.OnBar(ctx, bar(3, "50"), dec("10000"))
	if len(orders) != 0 {
		t.Errorf("re-entered after exit: %+v", orders)
	}
}
