package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/lifecycle"
	"github.com/cameronsjo/punch/internal/manifest"
	"github.com/cameronsjo/punch/internal/preflight"
	"github.com/cameronsjo/punch/internal/ui"
)

// createAppCmd creates a service and the shared components.
var createAppCmd = &cobra.Command{
	Use:   "create-app <name>",
	Short: "Create a service and the shared components",
	Long: `Create a service from the template and every shared component that is
not yet deployed (` + strings.Join(manifest.ComponentOrder, ", ") + `).

The service gets the next free port, a Dockerfile, Kubernetes manifests,
a .env file, a package.json and a block in docker-compose.yml.

Examples:
  punch create-app orders
  punch create-app orders --deploy
  punch create-app orders -x logging -x gateway --redux
  punch create-app orders --author "Jane Doe" --license MIT --git`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateApp,
}

// createServiceCmd creates a single service.
var createServiceCmd = &cobra.Command{
	Use:   "create-service <name>",
	Short: "Create a single service",
	Long: `Create a service from the template without touching the shared components.

Examples:
  punch create-service billing
  punch create-service billing --deploy --redux`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateService,
}

var (
	createDeploy  bool
	createRedux   bool
	createGit     bool
	createAuthor  string
	createLicense string
	createExclude []string
)

func createOptions() lifecycle.CreateOptions {
	return lifecycle.CreateOptions{
		Deploy:  createDeploy,
		Redux:   createRedux,
		Git:     createGit,
		Author:  createAuthor,
		License: createLicense,
	}
}

// requireDeployTools fails early when --deploy is set and docker or kubectl
// is missing.
func requireDeployTools() error {
	if !createDeploy {
		return nil
	}
	return preflight.Require("docker", "kubectl")
}

func runCreateApp(cmd *cobra.Command, args []string) error {
	if err := requireDeployTools(); err != nil {
		return err
	}
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.ctrl.CreateApp(cmd.Context(), args[0], lifecycle.AppOptions{
		CreateOptions: createOptions(),
		Exclude:       createExclude,
	})
	if res != nil && res.Service != nil {
		printService(res.Service)
	}
	if err != nil {
		return err
	}

	for _, c := range res.Components {
		ui.Success("Component %s added", c)
	}
	for _, c := range res.Skipped {
		ui.Detail("component %s already deployed, skipped", c)
	}
	printDeployHint(res.Service.Name)
	return nil
}

func runCreateService(cmd *cobra.Command, args []string) error {
	if err := requireDeployTools(); err != nil {
		return err
	}
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.ctrl.CreateService(cmd.Context(), args[0], createOptions())
	if res != nil {
		printService(res)
	}
	if err != nil {
		return err
	}
	printDeployHint(res.Name)
	return nil
}

// printService reports a service result, including the files of one that a
// failed deploy step left unregistered.
func printService(res *lifecycle.ServiceResult) {
	for _, f := range res.Files {
		ui.Created(f)
	}
	if res.PortReused {
		ui.Warning("Port %d was freed by an earlier removal and has been reused", res.Port)
	}
	if !res.Registered {
		return
	}
	ui.Success("Service %s created on port %d", res.Name, res.Port)
	if res.Commit != "" {
		ui.Detail("git commit %s", shortHash(res.Commit))
	}
	if res.Snapshot != "" {
		ui.Detail("previous state saved as %s", res.Snapshot)
	}
}

func printDeployHint(name string) {
	if createDeploy {
		return
	}
	fmt.Println()
	ui.Info("Start it with: docker compose up -d %s", name)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func init() {
	rootCmd.AddCommand(createAppCmd)
	rootCmd.AddCommand(createServiceCmd)

	for _, c := range []*cobra.Command{createAppCmd, createServiceCmd} {
		c.Flags().BoolVarP(&createDeploy, "deploy", "d", false, "Build the image, start it and apply the cluster manifests")
		c.Flags().BoolVarP(&createRedux, "redux", "r", false, "Generate frontend slice and selector files")
		c.Flags().BoolVar(&createGit, "git", false, "Initialize a git repository in the service directory")
	}
	createAppCmd.Flags().StringSliceVarP(&createExclude, "exclude", "x", nil, "Component to skip (repeatable)")
	_ = createAppCmd.RegisterFlagCompletionFunc("exclude", completeComponentKinds)
	createAppCmd.Flags().StringVarP(&createAuthor, "author", "a", "", "package.json author (default from punch.yaml)")
	createAppCmd.Flags().StringVarP(&createLicense, "license", "l", "", "package.json license (default from punch.yaml)")
}
