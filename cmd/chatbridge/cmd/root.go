package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatbridge/chatbridge/internal/config"
	"github.com/chatbridge/chatbridge/internal/contacts"
	"github.com/chatbridge/chatbridge/internal/embed"
	"github.com/chatbridge/chatbridge/internal/schedule"
	"github.com/chatbridge/chatbridge/internal/transport"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatbridge",
	Short: "MCP bridge to the local Messages store",
	Long: `chatbridge exposes the local Messages archive to MCP clients: reading
and searching message history, resolving contacts, sending messages, and
scheduling messages for later delivery.

The Messages database is opened read-only; sending goes through the
Messages app itself.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.chatbridge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newResolver builds the contact resolver from config. A missing or
// unconfigured address book degrades to identifier fallback rather than
// failing the command.
func newResolver() *contacts.Resolver {
	var dir contacts.Directory = contacts.NullDirectory{}
	if path := cfg.Contacts.AddressBookPath; path != "" {
		book, err := contacts.OpenAddressBook(path)
		if err != nil {
			logger.Warn("cannot open address book, contact names unavailable",
				"path", path, "error", err)
		} else {
			dir = book
		}
	}
	return contacts.NewResolver(dir, cfg.Contacts.CacheSize).WithLogger(logger)
}

// newTransport builds the osascript delivery transport.
func newTransport() transport.Transport {
	return transport.NewOSAScript().WithLogger(logger)
}

// newScheduleStore builds the scheduled-delivery store over the configured
// log path, wired to the given transport.
func newScheduleStore(tr transport.Transport) *schedule.Store {
	return schedule.NewStore(cfg.Schedule.LogPath, tr).WithLogger(logger)
}

// newEmbedClient builds the embedding client. Returns a client that reports
// unavailable when no credential is configured.
func newEmbedClient() *embed.Client {
	return embed.NewClient(
		cfg.Embedding.BaseURL,
		cfg.Embedding.Model,
		cfg.EmbeddingKey(),
		cfg.Embedding.RateQPS,
	)
}
