package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatbridge/chatbridge/internal/contacts"
)

var sendCmd = &cobra.Command{
	Use:   "send <recipient> <body>",
	Short: "Send a message now",
	Long: `Send a message immediately through the Messages app. Delivery tries
iMessage first and falls back to SMS once if that fails.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, body := args[0], args[1]
		if err := contacts.ValidRecipient(recipient); err != nil {
			return err
		}

		channel, err := newTransport().Send(cmd.Context(), contacts.Normalize(recipient), body)
		if err != nil {
			return err
		}
		fmt.Printf("sent via %s\n", channel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
