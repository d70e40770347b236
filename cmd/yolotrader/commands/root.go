// Package commands implements the yolotrader command line.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

var (
	configFile string
	logLevel   string
	noColor    bool
	barWidth   int
)

var rootCmd = &cobra.Command{
	Use:   "yolotrader",
	Short: "Follow the crowd on r/wallstreetbets YOLO posts",
	Long: `yolotrader gathers YOLO posts from r/wallstreetbets, extracts the
tickers and option directions they mention, stores a dated snapshot of the
signals and backtests the most frequent one against recent daily prices.

Calls are traded as shorts and puts as longs.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $YOLOTRADER_CONFIG or config/yolotrader.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().IntVar(&barWidth, "width", 0, "chart bar width (default 40)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "yolotrader", Version)
	},
}
