// ABOUTME: CLI command for grouping sleep samples into sessions.
// ABOUTME: Prints each session with its asleep time and per-phase totals.
package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/sleep"
	"github.com/spf13/cobra"
)

var (
	sleepStart  string
	sleepEnd    string
	sleepSource string
	sleepGap    time.Duration
	sleepMode   string
	sleepJSON   bool
)

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Show sleep sessions",
	Long: `Group sleep analysis samples into sleep sessions.

Samples from the same source that are no more than --gap apart belong to
one session. Per-phase totals are computed either as the union of each
phase's intervals (overlaps counted once) or as a plain sum.

EXAMPLES:

  healthexport sleep                                 # Last 7 days
  healthexport sleep --start 2025-01-01 --end 2025-02-01
  healthexport sleep --gap 30m --mode sum --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		end := time.Now()
		if sleepEnd != "" {
			t, err := parseTime(sleepEnd)
			if err != nil {
				return fmt.Errorf("invalid --end: %s", sleepEnd)
			}
			end = t
		}
		start := end.AddDate(0, 0, -7)
		if sleepStart != "" {
			t, err := parseTime(sleepStart)
			if err != nil {
				return fmt.Errorf("invalid --start: %s", sleepStart)
			}
			start = t
		}
		mode, ok := sleep.ParseTotalTimeMode(sleepMode)
		if !ok {
			return fmt.Errorf("unknown mode: %s (use union or sum)", sleepMode)
		}
		gap := sleepGap
		if gap <= 0 {
			gap = cfg.MaxSleepGap()
		}

		samples, err := db.Fetch(cmd.Context(), models.SampleSleepAnalysis, models.TimeRange{Start: start, End: end})
		if err != nil {
			return fmt.Errorf("failed to fetch sleep samples: %w", err)
		}
		if sleepSource != "" {
			kept := samples[:0]
			for _, s := range samples {
				if s.Source == sleepSource {
					kept = append(kept, s)
				}
			}
			samples = kept
		}

		summaries, err := sleep.Builder{MaxDistance: gap, Mode: mode}.Summarize(samples)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if sleepJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No sleep sessions found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range summaries {
			fmt.Fprintf(out, "%s → %s  %s asleep  %s\n",
				s.Start.Local().Format("2006-01-02 15:04"),
				s.End.Local().Format("15:04"),
				formatMinutes(s.AsleepMinutes),
				faint.Sprint(s.Source))

			phases := make([]string, 0, len(s.PhaseMinutes))
			for p := range s.PhaseMinutes {
				phases = append(phases, p)
			}
			sort.Strings(phases)
			for _, p := range phases {
				fmt.Fprintf(out, "    %s %s\n", padRight(p, 20), formatMinutes(s.PhaseMinutes[p]))
			}
		}
		return nil
	},
}

func formatMinutes(m float64) string {
	d := time.Duration(m * float64(time.Minute)).Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	sleepCmd.Flags().StringVar(&sleepStart, "start", "", "start date (default: 7 days before end)")
	sleepCmd.Flags().StringVar(&sleepEnd, "end", "", "exclusive end date (default: now)")
	sleepCmd.Flags().StringVar(&sleepSource, "source", "", "only include one source")
	sleepCmd.Flags().DurationVar(&sleepGap, "gap", 0, "largest gap inside one session (default from config, 60m)")
	sleepCmd.Flags().StringVar(&sleepMode, "mode", "union", "phase total mode: union or sum")
	sleepCmd.Flags().BoolVar(&sleepJSON, "json", false, "print sessions as JSON")
	rootCmd.AddCommand(sleepCmd)
}
