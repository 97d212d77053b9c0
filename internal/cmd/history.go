package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/ui"
)

// historyCmd lists state snapshots.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List state snapshots",
	Long: `List snapshots of the registry and docker-compose.yml, newest first.

A snapshot is taken before every create and remove. Backups taken by a
rollback are listed too.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

// rollbackCmd restores a snapshot.
var rollbackCmd = &cobra.Command{
	Use:   "rollback [snapshot]",
	Short: "Restore the registry and compose file from a snapshot",
	Long: `Restore the registry and docker-compose.yml from a snapshot, the most
recent one when no name is given. The current state is saved first so the
rollback itself can be undone.

Service and component directories are not touched; run 'punch doctor'
afterwards to find directories the restored registry no longer knows.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSnapshotNames,
	RunE:              runRollback,
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	snaps, err := p.ctrl.History()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		ui.Info("No snapshots yet.")
		return nil
	}

	ui.Header("Snapshots")
	for _, s := range snaps {
		fmt.Printf("  %-36s %s  ", s.Name, s.Created.Local().Format("2006-01-02 15:04:05"))
		ui.Faint.Println(s.Label)
	}
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	res, err := p.ctrl.Rollback(name)
	if err != nil {
		return err
	}

	ui.Snapshot("Restored %s", res.Snapshot)
	if res.ComposeDiff == "" {
		ui.Detail("docker-compose.yml unchanged")
	} else {
		ui.Header("docker-compose.yml changes:")
		printDiff(res.ComposeDiff)
	}
	fmt.Println()
	ui.Info("Run 'punch doctor' to check for leftover directories.")
	return nil
}

// printDiff prints the added and removed lines of a compose diff.
func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			ui.Green.Println(line)
		case strings.HasPrefix(line, "- "):
			ui.Red.Println(line)
		}
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
}
