package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"yolotrader/internal/engine"
)

var graphAll bool

var graphCmd = &cobra.Command{
	Use:   "graph [snapshot]",
	Short: "Chart signal frequency by ticker and position",
	Long: `graph draws a bar chart of how often each (ticker, position) appears in a
stored snapshot. Without an argument the latest snapshot is used; --all
combines every stored snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := analyze(cmd, args)
		if err != nil || res == nil {
			return err
		}
		return a.out.ByPosition(res.Snapshot, res.Table)
	},
}

var graphFreqCmd = &cobra.Command{
	Use:   "graph-freq [snapshot]",
	Short: "Chart ticker frequency regardless of position",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := analyze(cmd, args)
		if err != nil || res == nil {
			return err
		}
		return a.out.ByTicker(res.Snapshot, res.ByTicker)
	},
}

// analyze loads the requested snapshot. A nil analysis with a nil error
// means there was nothing to chart and a message was already printed.
func analyze(cmd *cobra.Command, args []string) (*app, *engine.Analysis, error) {
	a, err := newApp(cmd.OutOrStdout(), needs{})
	if err != nil {
		return nil, nil, err
	}

	var res *engine.Analysis
	switch {
	case graphAll:
		res, err = a.engine.AnalyzeAll()
	case len(args) == 1:
		res, err = a.engine.Analyze(args[0])
	default:
		res, err = a.engine.Analyze("")
	}
	if isNoData(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "%v (snapshot dir %s)\n", err, a.snaps.Dir())
		return a, nil, nil
	}
	return a, res, err
}

func init() {
	for _, c := range []*cobra.Command{graphCmd, graphFreqCmd} {
		c.Flags().BoolVar(&graphAll, "all", false, "combine every stored snapshot")
		rootCmd.AddCommand(c)
	}
}
