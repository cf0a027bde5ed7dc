// ABOUTME: Root Cobra command for healthexport CLI.
// ABOUTME: Loads config, builds the logger and opens storage via PersistentPre/PostRunE.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthexport/internal/config"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/logging"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *log.Logger
	db     *storage.DB
	store  storage.DescriptorBackend

	flagBackend  string
	flagDataDir  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "healthexport",
	Short: "Resumable bulk export of health samples",
	Long: `healthexport pulls large amounts of health samples out of a local sample
database in resumable, calendar-aligned batches.

QUICK START:

  $ healthexport import samples.json                     # Load samples
  $ healthexport samples --type heart_rate               # See what is there
  $ healthexport export run hr --types heart_rate        # Export in batches
  $ healthexport export status hr                        # Check progress
  $ healthexport sleep --start 2025-01-01                # Sleep sessions

EXPORTS:

  An export session splits every requested sample type into batches
  (monthly, weekly, or sized automatically for high-frequency types),
  hands each batch to a processor, and saves its progress after every
  batch. Press Ctrl-C during 'export run' to pause; run the same command
  again to resume where it stopped.

STORAGE:

  Samples live in SQLite at ~/.local/share/healthexport/samples.db.
  Session progress is kept in the configured backend:

    badger   local Badger directory (default)
    charm    Charm Cloud KV, E2E encrypted and synced across devices
    redis    shared Redis server
    memory   process memory only

  Settings are read from ~/.config/healthexport/config.json.

MCP INTEGRATION:

  Run 'healthexport mcp' to start the Model Context Protocol server.

  {
    "mcpServers": {
      "healthexport": { "command": "healthexport", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that don't need it
		switch cmd.Name() {
		case "help", "completion", "install-skill":
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if flagBackend != "" {
			loaded.Backend = flagBackend
		}
		if flagDataDir != "" {
			loaded.DataDir = flagDataDir
		}
		if flagLogLevel != "" {
			loaded.LogLevel = flagLogLevel
		}
		cfg = loaded

		logger = logging.New(logging.Options{
			Level:  cfg.GetLogLevel(),
			Format: cfg.LogFormat,
			Writer: cmd.ErrOrStderr(),
		})

		db, err = cfg.OpenSampleDB()
		if err != nil {
			return fmt.Errorf("failed to open sample database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeAll()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	// PostRun is skipped when RunE fails
	if cerr := closeAll(); err == nil {
		err = cerr
	}
	return err
}

func closeAll() error {
	var errs []error
	if store != nil {
		errs = append(errs, store.Close())
		store = nil
	}
	if db != nil {
		errs = append(errs, db.Close())
		db = nil
	}
	return errors.Join(errs...)
}

// descriptorStore opens the configured session store on first use.
func descriptorStore(ctx context.Context) (storage.DescriptorBackend, error) {
	if store != nil {
		return store, nil
	}
	s, err := cfg.OpenDescriptorStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session store: %w", cfg.GetBackend(), err)
	}
	store = s
	return store, nil
}

// newExporter builds an exporter over the sample database and session store.
func newExporter(ctx context.Context) (*export.Exporter, error) {
	s, err := descriptorStore(ctx)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(db, s, export.WithLogger(logging.Named(logger, "export"))), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "session store backend (badger, charm, redis, memory)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.local/share/healthexport)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}
