// ABOUTME: CLI commands for listing, dumping and deleting health samples.
// ABOUTME: Supports filtering by type, source and start date.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	samplesType   string
	samplesSource string
	samplesSince  string
	samplesLimit  int

	dumpOutput string
)

var samplesCmd = &cobra.Command{
	Use:     "samples",
	Aliases: []string{"ls"},
	Short:   "List health samples",
	Long: `List recent health samples, newest first.

OUTPUT FORMAT:

  Each line shows: ID  START  TYPE  VALUE  UNIT  SOURCE

  The ID is an 8-character prefix you can use with 'samples delete'.

EXAMPLES:

  healthexport samples                          # Last 20 samples
  healthexport samples --type heart_rate -n 50  # Last 50 heart rate samples
  healthexport samples --source watch           # Only one source
  healthexport samples --since 2025-01-01       # Started on or after a date`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := sampleFilter()
		if err != nil {
			return err
		}
		f.Limit = samplesLimit
		f.Newest = true

		samples, err := db.ListSamples(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("failed to list samples: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(samples) == 0 {
			fmt.Fprintln(out, "No samples found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range samples {
			fmt.Fprintf(out, "%s %s %s %s %s\n",
				faint.Sprint(s.ID.String()[:8]),
				faint.Sprint(s.Start.Local().Format("2006-01-02 15:04")),
				padRight(string(s.SampleType), 26),
				formatValue(s),
				faint.Sprint(s.Source))
		}
		return nil
	},
}

var samplesDumpCmd = &cobra.Command{
	Use:   "dump <format>",
	Short: "Dump every sample as JSON, YAML or Markdown",
	Long: `Write all samples in one document.

FORMATS:

  json       Full JSON export (re-importable with 'healthexport import')
  yaml       YAML export grouped by sample type
  markdown   Markdown tables (honours --type and --since)

EXAMPLES:

  healthexport samples dump json -o backup.json
  healthexport samples dump markdown --type step_count --since 2025-01-01`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var data []byte
		var err error
		switch args[0] {
		case "json":
			data, err = db.ExportJSON(ctx)
		case "yaml":
			data, err = db.ExportYAML(ctx)
		case "markdown":
			var f storage.SampleFilter
			f, err = sampleFilter()
			if err != nil {
				return err
			}
			var md string
			md, err = db.ExportMarkdown(ctx, f.SampleType, f.Since)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if dumpOutput != "" {
			if err := os.WriteFile(dumpOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", dumpOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var samplesDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a sample by ID or ID prefix",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := db.GetSample(ctx, args[0])
		if err != nil {
			return fmt.Errorf("sample not found: %s", args[0])
		}
		if err := db.DeleteSample(ctx, s.ID.String()); err != nil {
			return fmt.Errorf("failed to delete sample: %w", err)
		}

		color.Yellow("✗ Deleted %s", s.SampleType)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n",
			color.New(color.Faint).Sprint(s.ID.String()[:8]), formatValue(*s))
		return nil
	},
}

// sampleFilter builds a filter from the shared --type, --source and --since flags.
func sampleFilter() (storage.SampleFilter, error) {
	var f storage.SampleFilter
	if samplesType != "" {
		if !models.IsValidSampleType(samplesType) {
			return f, fmt.Errorf("unknown sample type: %s", samplesType)
		}
		st := models.SampleType(samplesType)
		f.SampleType = &st
	}
	f.Source = samplesSource
	if samplesSince != "" {
		t, err := parseTime(samplesSince)
		if err != nil {
			return f, fmt.Errorf("invalid date: %s (use YYYY-MM-DD)", samplesSince)
		}
		f.Since = &t
	}
	return f, nil
}

func formatValue(s models.Sample) string {
	if s.SampleType.IsCategory() {
		return fmt.Sprintf("%s (%s)", s.Category, s.Duration().Round(time.Minute))
	}
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", s.Value, s.Unit))
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	samplesCmd.PersistentFlags().StringVarP(&samplesType, "type", "t", "", "filter by sample type")
	samplesCmd.PersistentFlags().StringVar(&samplesSource, "source", "", "filter by source")
	samplesCmd.PersistentFlags().StringVar(&samplesSince, "since", "", "only samples starting on or after date (YYYY-MM-DD)")
	samplesCmd.Flags().IntVarP(&samplesLimit, "limit", "n", 20, "max number of results")
	samplesDumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "output file (default: stdout)")

	samplesCmd.AddCommand(samplesDumpCmd)
	samplesCmd.AddCommand(samplesDeleteCmd)
	rootCmd.AddCommand(samplesCmd)
}
