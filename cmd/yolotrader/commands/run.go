package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"yolotrader/internal/aggregate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Gather posts, snapshot signals and backtest the dominant one",
	Long: `run performs one full pass:

  1. search r/wallstreetbets for YOLO posts, OCR-ing screenshot posts
  2. extract valid tickers and their call/put direction
  3. write the dated JSON snapshot (today minus snapshot.offset_days)
  4. pick the most frequent (ticker, position)
  5. backtest it over the last simulate.lookback_days of daily bars

A snapshot with no signals is still written; the backtest is skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.OutOrStdout(), needs{gather: true, simulate: true, db: true})
		if err != nil {
			return err
		}
		defer a.Close()
		return runOnce(cmd.Context(), a, cmd.OutOrStdout())
	},
}

func runOnce(ctx context.Context, a *app, out io.Writer) error {
	res, err := a.engine.Run(ctx)
	if errors.Is(err, aggregate.ErrEmptyTable) {
		fmt.Fprintf(out, "snapshot %s: %d posts, no signals\n", res.Snapshot, res.Items)
		return nil
	}
	if res != nil && res.Table != nil {
		if cerr := a.out.ByPosition(res.Snapshot, res.Table); cerr != nil {
			return cerr
		}
		fmt.Fprintln(out)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Dominant signal: %s (%s) x%d\n\n", res.Dominant.Ticker, res.Dominant.Position, res.Count)
	return a.out.Backtest(res.Backtest)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
