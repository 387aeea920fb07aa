package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatbridge/chatbridge/internal/schedule"
)

var sweepNow bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deliver scheduled messages as they come due",
	Long: `Run the scheduled-delivery sweeper.

By default this starts a daemon that checks the schedule log on a cron
cadence (configurable via schedule.sweep_schedule) and sends every pending
message whose time has arrived. With --now it performs a single sweep and
exits, which suits launchd or cron-driven setups.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newScheduleStore(newTransport())

		if sweepNow {
			attempted, err := store.SweepDue(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			logger.Info("sweep finished", "attempted", attempted)
			return nil
		}

		sweeper, err := schedule.NewSweeper(store, cfg.Schedule.SweepSchedule)
		if err != nil {
			return err
		}
		sweeper.WithLogger(logger)
		sweeper.Start()

		<-cmd.Context().Done()

		stopCtx := sweeper.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(30 * time.Second):
			logger.Warn("sweeper did not drain before shutdown timeout")
		}
		return cmd.Context().Err()
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().BoolVar(&sweepNow, "now", false, "run one sweep immediately and exit")
}
