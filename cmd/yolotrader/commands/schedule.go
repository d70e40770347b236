package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"yolotrader/internal/schedule"
)

var (
	cronSpec string
	cronTZ   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Repeat run on a cron schedule until interrupted",
	Long: `schedule keeps the process alive and performs a full run each time the
cron expression fires. The default is once a month. A run still in progress
when the next one is due is skipped.

Example:
  yolotrader schedule
  yolotrader schedule --cron "0 6 1 * *" --tz America/New_York`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loc, err := time.LoadLocation(cronTZ)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.OutOrStdout(), needs{gather: true, simulate: true, db: true})
		if err != nil {
			return err
		}
		defer a.Close()

		s := schedule.New(loc, a.log)
		err = s.Add("run", cronSpec, func(ctx context.Context) error {
			return runOnce(ctx, a, cmd.OutOrStdout())
		})
		if err != nil {
			return err
		}
		return s.Run(cmd.Context())
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", schedule.DefaultSpec, "cron expression (5 fields or @descriptor)")
	scheduleCmd.Flags().StringVar(&cronTZ, "tz", "UTC", "time zone the expression is evaluated in")
	rootCmd.AddCommand(scheduleCmd)
}
