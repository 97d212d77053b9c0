// Package cmd provides the CLI commands for punch.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/ui"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

var (
	verbose bool
	noColor bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "punch",
	Short: "Scaffold and deploy microservices",
	Long: `punch - microservice scaffolding

Creates services from a template, assigns each a port, renders its Docker
and Kubernetes manifests, and keeps docker-compose.yml and the service
registry in step.

SETUP
  init [dir]              Write punch.yaml, the registry and the base compose file

SCAFFOLDING
  create-app <name>       Create a service plus the shared components
    --deploy, -d          Build, start and apply after writing
    --exclude, -x <kind>  Skip a component (repeatable)
    --redux, -r           Generate frontend slice and selectors
  create-service <name>   Create a single service
  remove <name>           Tear down a service or component
    --local               Only clean up local files and state

STATE
  list                    Show registered services and components
    --status              Include running container state
  history                 List state snapshots
  rollback [snapshot]     Restore the registry and compose file

DIAGNOSTICS
  doctor                  Check tools, docker and state drift
  update                  Update punch to the latest release`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Configure(os.Stdout, noColor)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Red.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate("punch version {{.Version}}\n")
}
