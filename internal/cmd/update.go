package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/ui"
	"github.com/cameronsjo/punch/internal/update"
)

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update punch to the latest version",
	Long: `Update punch to the latest version from GitHub releases.

This command will:
1. Check for a newer version on GitHub
2. Download the appropriate binary for your platform
3. Replace the current binary with the new version

Examples:
  punch update           # Update to latest version
  punch update --check   # Check for updates without installing`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var checkOnly bool

// newUpdater returns the release source. Tests replace it.
var newUpdater = update.New

func runUpdate(cmd *cobra.Command, args []string) error {
	ui.Blue.Printf("Current version: %s (%s)\n", version, update.GetPlatformInfo())
	ui.Blue.Println("Checking for updates...")

	updater, err := newUpdater()
	if err != nil {
		return err
	}

	if checkOnly {
		release, available, err := updater.Check(cmd.Context(), version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !available {
			ui.Success("You're running the latest version!")
			return nil
		}

		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		fmt.Println()
		ui.Blue.Println("To update, run: punch update")
		printChangelog(release)
		return nil
	}

	release, err := updater.Update(cmd.Context(), version)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	if release == nil {
		ui.Success("You're already running the latest version!")
		return nil
	}

	fmt.Println()
	ui.Success("Successfully updated to version %s!", release.Version)
	printChangelog(release)
	return nil
}

func printChangelog(release *update.Release) {
	if release.Changelog == "" {
		return
	}
	fmt.Println()
	ui.Yellow.Println("What's new:")
	printLines(release.Changelog, 10)
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
}
