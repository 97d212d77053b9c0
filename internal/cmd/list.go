package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/docker"
	"github.com/cameronsjo/punch/internal/ui"
)

// listCmd shows the registered topology.
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show registered services and components",
	Long: `Show registered services with their ports, and deployed components.

With --status, the running state of each compose service is read from the
Docker daemon.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listStatus bool

func runList(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	listing, err := p.ctrl.List()
	if err != nil {
		return err
	}
	if listing.Empty() {
		ui.Info("No services yet. Create one with: punch create-app <name>")
		return nil
	}

	showStatus := listStatus
	var states map[string]docker.ServiceState
	if showStatus {
		err := withDockerClient(func(ctx context.Context, client *docker.Client) error {
			var err error
			states, err = client.ServiceStates(ctx, compose.ProjectName(p.cfg.ComposePath()))
			return err
		})
		if err != nil {
			ui.Warning("Container state unavailable: %v", err)
			showStatus = false
		}
	}

	ui.Header("Services (base port %d)", listing.BasePort)
	if len(listing.Services) == 0 {
		ui.Detail("none")
	}
	for _, svc := range listing.Services {
		fmt.Printf("  %-24s %5d", svc.Name, svc.Port)
		if showStatus {
			fmt.Print("  ")
			printState(states, svc.Name)
		}
		fmt.Println()
	}

	fmt.Println()
	ui.Header("Components")
	if len(listing.Components) == 0 {
		ui.Detail("none")
	}
	for _, name := range listing.Components {
		fmt.Printf("  %-30s", name)
		if showStatus {
			fmt.Print("  ")
			printState(states, name)
		}
		fmt.Println()
	}

	if listing.NextPort > 0 {
		fmt.Println()
		ui.Detail("next port: %d", listing.NextPort)
	}
	return nil
}

func printState(states map[string]docker.ServiceState, name string) {
	s, ok := states[name]
	switch {
	case !ok:
		ui.Faint.Print("not running")
	case s.State == "running":
		ui.Green.Print(s.State)
	case s.State == "partial":
		ui.Yellow.Printf("%s (%d/%d)", s.State, s.Running, s.Containers)
	default:
		ui.Red.Print(s.State)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listStatus, "status", "s", false, "Include running container state")
}
