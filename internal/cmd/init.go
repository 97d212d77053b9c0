package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/ui"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a punch project",
	Long: `Initialize a punch project in the given directory.

This creates, when missing:
  - punch.yaml            Project settings
  - .punch/registry.json  Service and component registry
  - docker-compose.yml    Base compose file with infrastructure services
  - services/             Service directories

Existing files are left untouched, so init is safe to re-run.
If no directory is specified, the current directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initBasePort int

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	ui.Info("Initializing punch project in %s", absDir)

	var created []string
	path, err := config.WriteDefault(absDir, initBasePort)
	switch {
	case errors.Is(err, os.ErrExist):
		ui.Warning("%s already exists, keeping it", config.FileName)
	case err != nil:
		return err
	default:
		created = append(created, filepath.Base(path))
	}

	cfg, err := config.LoadFrom(absDir)
	if err != nil {
		return err
	}
	if initBasePort > 0 && cfg.BasePort != initBasePort {
		ui.Warning("Existing %s sets base port %d, ignoring --base-port", config.FileName, cfg.BasePort)
	}

	p, err := openConfig(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.ctrl.Init()
	if err != nil {
		return err
	}
	created = append(created, res.Created...)

	for _, f := range created {
		ui.Created(f)
	}
	ui.Success("Project ready (base port %d)", cfg.BasePort)
	fmt.Println()
	ui.Info("Next: punch create-app <name>")
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().IntVar(&initBasePort, "base-port", 0, "Port assigned to the first service (default 3000)")
}
