// ABOUTME: CLI command for importing health samples.
// ABOUTME: Reads JSON or YAML sample files into the sample database.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/healthexport/internal/storage"
	"github.com/spf13/cobra"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import health samples from JSON or YAML",
	Long: `Import health samples into the sample database.

The file may be a full export document ({"samples": [...]}) or, for JSON,
a bare array of samples. Samples whose ID already exists are skipped, so
importing the same file twice is harmless.

EXAMPLES:

  healthexport import samples.json
  healthexport import backup.yaml
  healthexport import dump.txt --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		raw, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		format := importFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
		}
		data, err := storage.ParseImport(raw, format)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		n, err := db.ImportData(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported %d of %d samples from %s", n, len(data.Samples), filename)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "file format: json or yaml (default: from extension)")
	rootCmd.AddCommand(importCmd)
}
