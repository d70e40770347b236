package commands

import (
	"github.com/spf13/cobra"
)

var runsLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored snapshots, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.OutOrStdout(), needs{})
		if err != nil {
			return err
		}
		names, err := a.snaps.List()
		if err != nil {
			return err
		}
		return a.out.Snapshots(names)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded backtest runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.OutOrStdout(), needs{db: true})
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.db.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		return a.out.Runs(runs)
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(snapshotsCmd, runsCmd)
}
