package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var scheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Manage scheduled messages",
}

var scheduledListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled messages in every state",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newScheduleStore(newTransport())
		entries := store.List()
		if len(entries) == 0 {
			fmt.Println("no scheduled messages")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSCHEDULED\tRECIPIENT\tBODY")
		for _, d := range entries {
			body := d.Body
			if len(body) > 40 {
				body = body[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.Status, d.ScheduledAt.Local().Format(time.RFC3339), d.Recipient, body)
		}
		return w.Flush()
	},
}

var scheduledAddCmd = &cobra.Command{
	Use:   "add <recipient> <time> <body>",
	Short: "Schedule a message for future delivery",
	Long: `Schedule a message. The time is RFC 3339, e.g. 2026-09-01T09:00:00Z,
and must be in the future. The sweep daemon delivers it when due.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		when, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return fmt.Errorf("invalid time %q: expected RFC 3339", args[1])
		}

		store := newScheduleStore(newTransport())
		d, err := store.Schedule(args[0], args[2], when)
		if err != nil {
			return err
		}
		fmt.Printf("scheduled %s for %s\n", d.ID, d.ScheduledAt.Local().Format(time.RFC3339))
		return nil
	},
}

var scheduledCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending scheduled message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newScheduleStore(newTransport())
		if err := store.Cancel(args[0]); err != nil {
			return err
		}
		fmt.Printf("cancelled %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduledCmd)
	scheduledCmd.AddCommand(scheduledListCmd)
	scheduledCmd.AddCommand(scheduledAddCmd)
	scheduledCmd.AddCommand(scheduledCancelCmd)
}
