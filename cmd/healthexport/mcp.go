// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server exposing export sessions and sleep summaries.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/harperreed/healthexport/internal/logging"
	"github.com/harperreed/healthexport/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpOutput string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Exports started through it keep
running in the background and are paused and saved when the server exits.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "healthexport": {
        "command": "healthexport",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  start_export     Start or resume an export session
  export_status    Progress for one session, or all sessions
  pause_export     Pause a running session
  delete_export    Stop a session and delete its saved progress
  sleep_sessions   Sleep sessions with per-phase totals
  list_samples     Recent samples, optionally filtered

AVAILABLE RESOURCES:

  healthexport://sessions          Live and saved export sessions
  healthexport://samples/summary   Sample counts per type`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		exporter, err := newExporter(ctx)
		if err != nil {
			return err
		}

		outDir := mcpOutput
		if outDir == "" {
			outDir = filepath.Join(cfg.GetDataDir(), "exports")
		}
		server, err := mcp.NewServer(db, exporter, mcp.Options{
			OutputDir:   outDir,
			Concurrency: cfg.ExportConcurrency(),
			SleepGap:    cfg.MaxSleepGap(),
			Logger:      logging.Named(logger, "mcp"),
		})
		if err != nil {
			return err
		}

		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpOutput, "output", "o", "", "export output directory (default: <data dir>/exports)")
	rootCmd.AddCommand(mcpCmd)
}
