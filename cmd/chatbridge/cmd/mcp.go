package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/chatbridge/chatbridge/internal/mcp"
	"github.com/chatbridge/chatbridge/internal/query"
	"github.com/chatbridge/chatbridge/internal/search"
	"github.com/chatbridge/chatbridge/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to read message history,
search it, resolve contacts, send messages, and schedule future sends.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "chatbridge": {
        "command": "chatbridge",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.Messages.DBPath)
		if err != nil {
			return fmt.Errorf("open messages database: %w", err)
		}
		defer s.Close()

		engine := query.NewSQLiteEngine(s.DB()).WithLogger(logger)
		tr := newTransport()

		searchEngine := search.New(engine, newEmbedClient()).
			WithLogger(logger).
			WithWindow(cfg.Embedding.Window)

		return mcpserver.Serve(cmd.Context(), mcpserver.Deps{
			Engine:    engine,
			Search:    searchEngine,
			Resolver:  newResolver(),
			Schedules: newScheduleStore(tr),
			Transport: tr,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
