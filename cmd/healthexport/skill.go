// ABOUTME: Install Claude Code skill for healthexport.
// ABOUTME: Embeds and installs the skill definition to ~/.claude/skills/.

package main

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:   "install-skill",
	Short: "Install Claude Code skill",
	Long: `Install the healthexport skill for Claude Code.

This copies the skill definition to ~/.claude/skills/healthexport/
so Claude Code can run exports and sleep summaries contextually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		return installSkill(home, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

// skillPath returns where the skill file is installed under home.
func skillPath(home string) string {
	return filepath.Join(home, ".claude", "skills", "healthexport", "SKILL.md")
}

func installSkill(home string, in io.Reader, out io.Writer) error {
	path := skillPath(home)

	fmt.Fprintln(out, "This will install the healthexport skill, enabling Claude Code to:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  • Run and resume bulk exports")
	fmt.Fprintln(out, "  • Check export progress")
	fmt.Fprintln(out, "  • Summarise sleep sessions")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Destination:")
	fmt.Fprintf(out, "  %s\n", path)
	fmt.Fprintln(out)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, "Note: A skill file already exists and will be overwritten.")
		fmt.Fprintln(out)
	}

	if !skillSkipConfirm {
		fmt.Fprint(out, "Install the healthexport skill? [y/N] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Installation canceled.")
			return nil
		}
		fmt.Fprintln(out)
	}

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return fmt.Errorf("failed to read embedded skill: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write skill file: %w", err)
	}

	fmt.Fprintln(out, "✓ Installed healthexport skill successfully!")
	return nil
}
