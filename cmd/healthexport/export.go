// ABOUTME: CLI commands for resumable bulk export sessions.
// ABOUTME: Supports run (Ctrl-C pauses), status, list, reset and backend migration.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthexport/internal/charm"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/processor"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	runTypes       []string
	runStart       string
	runEnd         string
	runBatchSize   string
	runFormat      string
	runOutput      string
	runRetry       bool
	runConcurrency int

	resetYes bool

	migrateFrom      string
	migrateTo        string
	migrateOverwrite bool
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"x"},
	Short:   "Run and manage bulk export sessions",
	Long: `Run and manage resumable bulk export sessions.

COMMANDS:

  run <id>       Start or resume a session, writing one file per batch
  status <id>    Show progress for one session
  list           List live and saved sessions
  reset <id>     Delete a session's saved progress
  migrate        Copy saved sessions between storage backends

Sessions are identified by any name you choose. Running the same ID again
resumes it: finished batches are skipped and failed batches are retried.`,
}

var exportRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Start or resume an export session",
	Long: `Start or resume an export session.

Each batch is written to <output>/<id>/<sample_type>/<first sample>.json
(or .yaml). Progress is saved after every batch. Press Ctrl-C to pause;
in-flight batches are abandoned and run again on resume.

START:

  oldest         From each type's oldest sample (default)
  2024-01-01     A fixed date
  30d, 6m, 1y    A span before the end date (h, d, w, m, y)

BATCH SIZE:

  auto           Monthly for high-frequency types, six months otherwise (default)
  day, 2w, month, 3months, year

EXAMPLES:

  healthexport export run hr --types heart_rate
  healthexport export run all --types heart_rate,step_count,sleep_analysis --start 1y
  healthexport export run hr --types heart_rate --batch-size 2w --concurrency 4
  healthexport export run hr --retry-failed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		out := cmd.OutOrStdout()

		sessionCfg, err := runSessionConfig()
		if err != nil {
			return err
		}
		format, err := processor.ParseFormat(runFormat)
		if err != nil {
			return err
		}
		outDir := runOutput
		if outDir == "" {
			outDir = filepath.Join(cfg.GetDataDir(), "exports")
		}
		writer, err := processor.NewFileWriter(filepath.Join(outDir, id), format)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exporter, err := newExporter(ctx)
		if err != nil {
			return err
		}
		// Sync charm once at the end instead of after every batch.
		if cc, ok := store.(*charm.Client); ok {
			cc.SetAutoSync(false)
			defer func() {
				if err := cc.Sync(); err != nil {
					logger.Warn("charm sync failed", "err", err)
				}
			}()
		}
		session, err := export.OpenSession[processor.BatchFile](ctx, exporter, id, sessionCfg, writer)
		if err != nil {
			return err
		}

		concurrency := cfg.ExportConcurrency()
		if cmd.Flags().Changed("concurrency") {
			concurrency = export.ConcurrencyFromInt(runConcurrency)
		}

		p := session.Progress()
		if p.Completed == 0 {
			if busy, err := storage.IsDirNonEmpty(writer.Dir()); err == nil && busy {
				color.Yellow("⚠ %s already contains files; batches with the same start will be replaced", writer.Dir())
			}
		}
		fmt.Fprintf(out, "Exporting %s: %d batches pending, %d done, concurrency %s\n",
			id, p.Pending, p.Completed, concurrency)

		// Cancelling ctx pauses the session and closes files.
		files, err := session.Start(ctx, export.StartOptions{
			RetryFailedBatches: runRetry,
			Concurrency:        concurrency,
		})
		if err != nil {
			return err
		}

		faint := color.New(color.Faint)
		for f := range files {
			if f.Path == "" {
				continue
			}
			fmt.Fprintf(out, "%s %s %d samples\n", color.GreenString("✓"), faint.Sprint(f.Path), f.Samples)
		}

		if err := exporter.Close(context.Background()); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}

		p = session.Progress()
		switch session.State() {
		case export.StateCompleted:
			if p.Failed > 0 {
				color.Yellow("⚠ Finished with %d failed batches; rerun with --retry-failed", p.Failed)
			} else {
				color.Green("✓ Export %s complete (%d batches)", id, p.Completed)
			}
		default:
			color.Yellow("⏸ Paused %s: %d done, %d pending. Run again to resume.", id, p.Completed, p.Pending)
		}
		return nil
	},
}

var exportStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show export session progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := newExporter(cmd.Context())
		if err != nil {
			return err
		}
		info, ok, err := exporter.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session not found: %s", args[0])
		}
		printSessionInfo(cmd, info, true)
		return nil
	},
}

var exportListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List export sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := newExporter(cmd.Context())
		if err != nil {
			return err
		}
		infos, err := exporter.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No export sessions found.")
			return nil
		}
		for _, info := range infos {
			printSessionInfo(cmd, info, false)
		}
		return nil
	},
}

var exportResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Delete an export session's saved progress",
	Long: `Delete an export session's saved progress.

Files already written are kept. Running the session ID again afterwards
starts from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if !resetYes {
			fmt.Fprintf(cmd.OutOrStdout(), "Delete saved progress for %s? [y/N]: ", id)
			var confirm string
			fmt.Fscanln(cmd.InOrStdin(), &confirm)
			if confirm != "y" && confirm != "Y" {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
				return nil
			}
		}

		exporter, err := newExporter(cmd.Context())
		if err != nil {
			return err
		}
		if err := exporter.DeleteSessionRestorationInfo(cmd.Context(), id); err != nil {
			return err
		}
		color.Yellow("✗ Reset %s", id)
		return nil
	},
}

var exportMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy saved sessions between backends",
	Long: `Copy every saved export session from one backend to another.

Sessions already present in the destination are skipped unless
--overwrite is given. Use this before changing 'backend' in the config.

EXAMPLES:

  healthexport export migrate --from badger --to charm
  healthexport export migrate --from redis --to badger --overwrite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == "" || migrateTo == "" {
			return errors.New("both --from and --to are required")
		}
		if migrateFrom == migrateTo {
			return errors.New("--from and --to must differ")
		}
		ctx := cmd.Context()

		src, err := cfg.OpenBackend(ctx, migrateFrom)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer src.Close()
		dst, err := cfg.OpenBackend(ctx, migrateTo)
		if err != nil {
			return fmt.Errorf("open destination: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateDescriptors(ctx, src, dst, migrateOverwrite)
		if err != nil {
			return err
		}
		color.Green("✓ Migrated %d sessions from %s to %s", summary.Sessions, migrateFrom, migrateTo)
		if summary.Skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Skipped %d existing (use --overwrite to replace)\n", summary.Skipped)
		}
		return nil
	},
}

func runSessionConfig() (export.SessionConfig, error) {
	var sc export.SessionConfig
	for _, t := range runTypes {
		t = strings.TrimSpace(t)
		if !models.IsValidSampleType(t) {
			return sc, fmt.Errorf("unknown sample type: %s", t)
		}
		sc.SampleTypes = append(sc.SampleTypes, models.SampleType(t))
	}

	start, err := export.ParseStartDate(runStart)
	if err != nil {
		return sc, err
	}
	sc.Start = start

	if runEnd != "" {
		end, err := parseTime(runEnd)
		if err != nil {
			return sc, fmt.Errorf("invalid --end: %s", runEnd)
		}
		sc.End = end
	}

	size, err := export.ParseBatchSize(runBatchSize)
	if err != nil {
		return sc, err
	}
	sc.BatchSize = size
	return sc, nil
}

func printSessionInfo(cmd *cobra.Command, info export.SessionInfo, detailed bool) {
	out := cmd.OutOrStdout()
	faint := color.New(color.Faint)

	state := info.State.String()
	switch info.State {
	case export.StateCompleted:
		state = color.GreenString(state)
	case export.StateRunning:
		state = color.CyanString(state)
	case export.StatePaused:
		state = color.YellowString(state)
	}

	p := info.Progress
	fmt.Fprintf(out, "%s %s %d/%d batches",
		padRight(info.ID, 20), padRight(state, 10), p.Completed, p.Total())
	if p.Failed > 0 {
		fmt.Fprintf(out, " %s", color.RedString("%d failed", p.Failed))
	}
	fmt.Fprintln(out)

	if !detailed {
		return
	}
	if !info.StartDate.IsZero() {
		fmt.Fprintf(out, "  Range:     %s → %s\n",
			info.StartDate.Format(time.DateOnly), info.EndDate.Format(time.DateOnly))
	}
	fmt.Fprintf(out, "  Pending:   %d\n", p.Pending)
	fmt.Fprintf(out, "  In flight: %d\n", p.InFlight)
	fmt.Fprintf(out, "  Completed: %d\n", p.Completed)
	fmt.Fprintf(out, "  Failed:    %d\n", p.Failed)
	if info.Live {
		fmt.Fprintln(out, faint.Sprint("  (live in this process)"))
	}
}

func init() {
	exportRunCmd.Flags().StringSliceVar(&runTypes, "types", nil, "sample types to export (comma separated)")
	exportRunCmd.Flags().StringVar(&runStart, "start", "oldest", "start: oldest, YYYY-MM-DD, or a span like 30d")
	exportRunCmd.Flags().StringVar(&runEnd, "end", "", "exclusive end date (default: now)")
	exportRunCmd.Flags().StringVar(&runBatchSize, "batch-size", "auto", "batch size: auto, day, week, month, year with optional count")
	exportRunCmd.Flags().StringVarP(&runFormat, "format", "f", "json", "batch file format: json or yaml")
	exportRunCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output directory (default: <data dir>/exports)")
	exportRunCmd.Flags().BoolVar(&runRetry, "retry-failed", false, "retry batches that failed earlier")
	exportRunCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "batches in parallel: -1 unlimited, 0 or 1 sequential (default from config)")

	exportResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip confirmation")

	exportMigrateCmd.Flags().StringVar(&migrateFrom, "from", "", "source backend")
	exportMigrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend")
	exportMigrateCmd.Flags().BoolVar(&migrateOverwrite, "overwrite", false, "replace sessions that already exist in the destination")

	exportCmd.AddCommand(exportRunCmd)
	exportCmd.AddCommand(exportStatusCmd)
	exportCmd.AddCommand(exportListCmd)
	exportCmd.AddCommand(exportResetCmd)
	exportCmd.AddCommand(exportMigrateCmd)
	rootCmd.AddCommand(exportCmd)
}
