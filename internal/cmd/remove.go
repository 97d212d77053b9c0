package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/lifecycle"
	"github.com/cameronsjo/punch/internal/ui"
)

// removeCmd tears down a service or component.
var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Tear down a service or component",
	Long: `Tear down a service or deployed component.

Removes the cluster resources and the image, the docker-compose.yml block,
the directory and the registry entry. Every step is attempted even when an
earlier one fails; failures are listed and the command exits non-zero.

Use --local to skip kubectl and docker and only clean up local state.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeRegisteredNames,
	RunE:              runRemove,
}

var removeLocal bool

func runRemove(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.ctrl.Remove(cmd.Context(), args[0], lifecycle.RemoveOptions{SkipExternal: removeLocal})
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		ui.Warning("%s failed: %v", f.Step, f.Err)
	}
	if res.Kind == lifecycle.KindService {
		ui.Removed(fmt.Sprintf("%s (port %d)", res.Name, res.Port))
	} else {
		ui.Removed(res.Name)
	}
	ui.Detail("previous state saved as %s", res.Snapshot)

	if err := res.Err(); err != nil {
		return fmt.Errorf("%s %s removed with %d failed step(s)", res.Kind, res.Name, len(res.Failures))
	}
	ui.Success("%s %s removed", res.Kind, res.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().BoolVar(&removeLocal, "local", false, "Only clean up local files and state")
}
