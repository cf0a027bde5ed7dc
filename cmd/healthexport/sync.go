// ABOUTME: CLI commands for Charm-based sync of export sessions.
// ABOUTME: Supports link, unlink, now, status, repair, reset, and wipe operations.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harperreed/healthexport/internal/charm"
	"github.com/harperreed/healthexport/internal/export"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Sync export sessions across devices",
	Long: `Sync saved export sessions across devices using Charm Cloud.

These commands act on the charm backend regardless of the configured
backend. Set "backend": "charm" in the config to keep session progress
there. Data is E2E encrypted with your SSH key before upload.

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  now         Sync immediately
  status      Show sync status and saved sessions
  repair      Repair database corruption
  reset       Reset local data and restore from cloud (destructive)
  wipe        Delete cloud and local data (destructive)`,
}

var syncLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this device to Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "link")
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}

		color.Green("\n✓ Device linked to Charm")

		client, err := charm.InitClient()
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Sync(); err != nil {
			color.Yellow("⚠ Initial sync failed: %v", err)
		} else {
			color.Green("✓ Initial sync complete")
		}
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Disconnect from Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "unlink")
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}

		color.Green("✓ Device unlinked from Charm")
		fmt.Println("Your local session progress is preserved.")
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Sync with Charm Cloud immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := charm.InitClient()
		if err != nil {
			return fmt.Errorf("failed to initialize charm client: %w", err)
		}
		defer client.Close()
		if client.IsReadOnly() {
			color.Yellow("⚠ Database is locked by another process (MCP server?); skipping sync")
			return nil
		}
		if err := client.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		color.Green("✓ Synced")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := charm.InitClient()
		if err != nil {
			color.Yellow("Charm client not initialized: %v", err)
			return nil
		}
		defer client.Close()

		id, err := client.ID()
		if err != nil {
			color.Yellow("Not linked to Charm")
			fmt.Println("\nRun 'healthexport sync link' to connect to Charm.")
			return nil
		}

		fmt.Println("Charm ID:", id)
		fmt.Println("Server: charm.2389.dev")
		fmt.Println()

		ids, err := export.ListSessionIDs(cmd.Context(), client)
		if err != nil {
			return err
		}
		color.Green("✓ Connected to Charm")
		fmt.Printf("  Saved sessions: %d\n", len(ids))
		if client.IsReadOnly() {
			color.Yellow("  Read-only: another process holds the database")
		}
		return nil
	},
}

var syncWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all cloud and local data",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will PERMANENTLY DELETE all cloud backups and local session progress.")
		fmt.Print("Type 'wipe' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "wipe" {
			fmt.Println("Canceled.")
			return nil
		}

		result, err := kv.Wipe(charm.DBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		color.Green("✓ Data wiped successfully")
		fmt.Printf("  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Printf("  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair database corruption",
	Long: `Repair database corruption by checkpointing WAL, removing SHM files, checking integrity, and vacuuming.

Run with --force to attempt recovery even if integrity checks fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		fmt.Println("Repairing healthexport database...")
		result, err := kv.Repair(charm.DBName, force)

		if result.WalCheckpointed {
			color.Green("  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			color.Green("  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			color.Green("  ✓ Integrity check passed")
		} else {
			color.Red("  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			color.Green("  ✓ Database vacuumed")
		}

		if err != nil {
			if !force {
				color.Yellow("\nRun with --force to attempt recovery.")
			}
			return fmt.Errorf("repair failed: %w", err)
		}

		color.Green("\n✓ Repair complete")
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset local data and restore from cloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("This will DELETE all local session progress and restore from cloud.")
		fmt.Print("Continue? [y/N]: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Canceled.")
			return nil
		}

		client, err := charm.InitClient()
		if err != nil {
			return fmt.Errorf("failed to open charm database: %w", err)
		}
		defer client.Close()

		if err := client.Reset(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.Green("✓ Local data reset and restored from cloud")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)
	syncCmd.AddCommand(syncWipeCmd)

	syncRepairCmd.Flags().Bool("force", false, "Attempt recovery even if integrity checks fail")

	rootCmd.AddCommand(syncCmd)
}
