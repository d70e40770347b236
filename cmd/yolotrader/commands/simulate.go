package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yolotrader/internal/domain"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate SYMBOL C|P",
	Short: "Backtest one signal over recent daily bars",
	Long: `simulate runs the follow strategy for a single ticker without gathering.
C (call) opens a short, P (put) opens a long. The position closes on an
exit_threshold move from entry in either direction or after max_hold_days.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		position := domain.Position(strings.ToUpper(args[1]))
		if !position.Valid() {
			return fmt.Errorf("position must be C or P, got %q", args[1])
		}

		a, err := newApp(cmd.OutOrStdout(), needs{simulate: true})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.engine.Simulate(cmd.Context(), symbol, position)
		if err != nil {
			return err
		}
		return a.out.Backtest(res)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}
