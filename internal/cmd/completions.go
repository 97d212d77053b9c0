package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/manifest"
	"github.com/cameronsjo/punch/internal/registry"
	"github.com/cameronsjo/punch/internal/snapshot"
)

// completeRegisteredNames completes registered service and component names.
func completeRegisteredNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Don't complete if we already have an argument
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	reg, err := registry.NewStore(cfg.RegistryPath(), cfg.BasePort).Read()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var candidates []string
	for _, svc := range reg.ServiceEntries() {
		candidates = append(candidates, svc.Name)
	}
	candidates = append(candidates, reg.DeployedComponents()...)
	return withPrefix(candidates, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeSnapshotNames completes snapshot names.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	snaps, err := snapshot.New(cfg.Root, cfg.StateDir()).List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	names := make([]string, 0, len(snaps))
	for _, s := range snaps {
		names = append(names, s.Name)
	}
	return withPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeComponentKinds completes component kinds for --exclude.
func completeComponentKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return withPrefix(manifest.ComponentOrder, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func withPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
