package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"yolotrader/internal/domain"
)

// ---------------------------------------------------------------------------
// AlpacaChecker: asset lookup against the trading API.
// ---------------------------------------------------------------------------

// assetGetter is the subset of *alpaca.Client used for validation.
type assetGetter interface {
	GetAsset(symbol string) (*alpaca.Asset, error)
}

// AlpacaChecker treats a symbol as valid when Alpaca knows it as an active,
// tradable asset.
type AlpacaChecker struct {
	client assetGetter
	log    *slog.Logger
}

// NewAlpacaChecker creates an AlpacaChecker against the trading API at
// baseURL (empty for the SDK default).
func NewAlpacaChecker(apiKey, apiSecret, baseURL string) *AlpacaChecker {
	return &AlpacaChecker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		log: slog.Default().With("checker", "alpaca"),
	}
}

// Exists reports whether ticker is an active, tradable asset. Unknown
// symbols return false with no error; transport failures return the error.
func (c *AlpacaChecker) Exists(ctx context.Context, ticker string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	asset, err := c.client.GetAsset(ticker)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusUnprocessableEntity) {
			return false, nil
		}
		return false, fmt.Errorf("GetAsset %s: %w", ticker, err)
	}

	ok := asset.Tradable && strings.EqualFold(string(asset.Status), "active")
	if !ok {
		c.log.Debug("asset not tradable", "ticker", ticker, "status", string(asset.Status))
	}
	return ok, nil
}

// ---------------------------------------------------------------------------
// AlpacaHistory: daily bars from the market-data API.
// ---------------------------------------------------------------------------

// barGetter is the subset of *marketdata.Client used for history.
type barGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaHistory fetches daily bars from the Alpaca market-data API.
type AlpacaHistory struct {
	client barGetter
	feed   marketdata.Feed
	loc    *time.Location
	log    *slog.Logger
}

// NewAlpacaHistory creates an AlpacaHistory. feed selects the data feed
// ("iex" or "sip"); dataURL may be empty for the SDK default.
func NewAlpacaHistory(apiKey, apiSecret, dataURL, feed string) *AlpacaHistory {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newAlpacaHistory(marketdata.NewClient(opts), feed)
}

func newAlpacaHistory(client barGetter, feed string) *AlpacaHistory {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &AlpacaHistory{
		client: client,
		feed:   marketdata.Feed(feed),
		loc:    loc,
		log:    slog.Default().With("history", "alpaca"),
	}
}

// History returns daily bars for symbol between start and end inclusive.
func (h *AlpacaHistory) History(ctx context.Context, symbol string, start, end domain.Date) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := h.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start.Time,
		End:       end.AddDays(1).Time,
		Feed:      h.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		day := domain.DateOf(ab.Timestamp.In(h.loc))
		if day.Before(start.Time) || day.After(end.Time) {
			continue
		}
		bars = append(bars, domain.Bar{
			Symbol: strings.ToUpper(symbol),
			Date:   day,
			Open:   decimal.NewFromFloat(ab.Open),
			High:   decimal.NewFromFloat(ab.High),
			Low:    decimal.NewFromFloat(ab.Low),
			Close:  decimal.NewFromFloat(ab.Close),
			Volume: int64(ab.Volume),
		})
	}

	h.log.Debug("fetched bars", "symbol", symbol, "start", start.String(), "end", end.String(), "bars", len(bars))
	return bars, nil
}
