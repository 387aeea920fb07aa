package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatbridge/chatbridge/internal/query"
	"github.com/chatbridge/chatbridge/internal/store"
)

var chatsLimit int

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List conversations by most recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Messages.DBPath)
		if err != nil {
			return fmt.Errorf("open messages database: %w", err)
		}
		defer s.Close()

		engine := query.NewSQLiteEngine(s.DB()).WithLogger(logger)
		convos, err := engine.ListConversations(cmd.Context(), chatsLimit)
		if err != nil {
			return err
		}

		resolver := newResolver()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLAST MESSAGE\tMESSAGES\tPARTICIPANTS")
		for _, c := range convos {
			names := make([]string, len(c.Participants))
			for i, p := range c.Participants {
				if name := resolver.Resolve(cmd.Context(), p); name != "" {
					names[i] = name
				} else {
					names[i] = p
				}
			}
			label := strings.Join(names, ", ")
			if c.DisplayName != "" {
				label = c.DisplayName
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n",
				c.ID, c.LastMessageAt.Local().Format(time.RFC3339), c.MessageCount, label)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chatsCmd)
	chatsCmd.Flags().IntVar(&chatsLimit, "limit", 0, "maximum conversations to list (default 50)")
}
