package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/deploy"
	"github.com/cameronsjo/punch/internal/docker"
	"github.com/cameronsjo/punch/internal/lifecycle"
	"github.com/cameronsjo/punch/internal/preflight"
	"github.com/cameronsjo/punch/internal/ui"
)

const doctorCheckTimeout = 10 * time.Second

// doctorCmd runs pre-flight and state checks.
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"checkup"},
	Short:   "Check tools, docker and project state",
	Long: `Run pre-flight checks:

  - docker, kubectl and optional tools are installed
  - the Docker daemon is reachable and the compose plugin is present
  - docker-compose.yml loads and no host port is published twice
  - the registry agrees with docker-compose.yml and the service directories

Exits non-zero when a check fails. Warnings do not fail the run.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// pingDocker checks the daemon. Tests replace it.
var pingDocker = func(ctx context.Context) error {
	return withDockerClient(func(_ context.Context, client *docker.Client) error {
		return client.Ping(ctx)
	})
}

// composeVersion reports the docker compose plugin version. Tests replace it.
var composeVersion = func(ctx context.Context) (string, error) {
	runner := &deploy.ExecRunner{}
	res, err := runner.Run(ctx, deploy.Command{Name: "docker", Args: []string{"compose", "version", "--short"}})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", errors.New(strings.TrimSpace(res.Output))
	}
	return strings.TrimSpace(res.Output), nil
}

// checkTally counts doctor outcomes.
type checkTally struct {
	passed, warned, failed int
}

func (t *checkTally) pass(format string, args ...any) {
	ui.Green.Printf("  * "+format+"\n", args...)
	t.passed++
}

func (t *checkTally) warn(format string, args ...any) {
	ui.Yellow.Printf("  ! "+format+"\n", args...)
	t.warned++
}

func (t *checkTally) fail(format string, args ...any) {
	ui.Red.Printf("  x "+format+"\n", args...)
	t.failed++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), doctorCheckTimeout)
	defer cancel()

	t := &checkTally{}

	ui.Header("Tools")
	for _, r := range preflight.Check() {
		switch {
		case r.Found:
			t.pass("%s (%s)", r.Name, r.Path)
		case r.Required:
			t.fail("%s not found, needed to %s", r.Name, r.Purpose)
			ui.Detail("%s", r.InstallHint)
		default:
			t.warn("%s not found, needed to %s", r.Name, r.Purpose)
		}
	}

	fmt.Println()
	ui.Header("Docker")
	if err := pingDocker(ctx); err != nil {
		t.fail("Docker daemon unreachable: %v", err)
	} else {
		t.pass("Docker daemon is running")
	}
	if v, err := composeVersion(ctx); err != nil {
		t.fail("Docker Compose v2 not found")
	} else {
		t.pass("Docker Compose v2 (%s)", v)
	}

	fmt.Println()
	ui.Header("Project")
	checkProject(ctx, t)

	fmt.Println()
	summary := fmt.Sprintf("%d passed, %d warnings, %d failed", t.passed, t.warned, t.failed)
	if t.failed > 0 {
		return fmt.Errorf("doctor: %s", summary)
	}
	ui.Success("%s", summary)
	return nil
}

func checkProject(ctx context.Context, t *checkTally) {
	wd, err := os.Getwd()
	if err != nil {
		t.fail("Working directory: %v", err)
		return
	}
	if _, found := config.FindRoot(wd); !found {
		t.warn("No punch project here (run 'punch init')")
		return
	}

	p, err := openProject()
	if err != nil {
		t.fail("Configuration: %v", err)
		return
	}
	defer p.close()
	t.pass("Project root: %s", p.cfg.Root)

	listing, err := p.ctrl.List()
	if err != nil {
		t.fail("Registry: %v", err)
		return
	}
	t.pass("Registry: %d services, %d components", len(listing.Services), len(listing.Components))

	report, err := compose.Validate(ctx, p.cfg.ComposePath())
	switch {
	case err != nil:
		t.fail("%s: %v", p.cfg.ComposeFile, err)
	case len(report.PortConflicts) > 0:
		for port, owners := range report.PortConflicts {
			t.fail("Host port %s published by %s", port, strings.Join(owners, ", "))
		}
	default:
		t.pass("%s: %d services", p.cfg.ComposeFile, len(report.Services))
	}

	drift, err := p.ctrl.CheckDrift()
	if err != nil {
		t.fail("Drift check: %v", err)
		return
	}
	if drift.Clean() {
		t.pass("Registry matches %s and %s/", p.cfg.ComposeFile, p.cfg.ServicesDir)
		return
	}
	reportDrift(t, drift)
}

func reportDrift(t *checkTally, d *lifecycle.Drift) {
	for _, name := range d.MissingBlocks {
		t.warn("%s is registered but has no compose block", name)
	}
	for _, name := range d.UnregisteredBlocks {
		t.warn("Compose block %s is not registered", name)
	}
	for _, name := range d.MissingDirs {
		t.warn("%s is registered but its directory is missing", name)
	}
	for _, name := range d.UnregisteredDirs {
		t.warn("Directory for %s has no registry entry (remove it or re-create the service)", name)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
