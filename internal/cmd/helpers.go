package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/deploy"
	"github.com/cameronsjo/punch/internal/docker"
	"github.com/cameronsjo/punch/internal/lifecycle"
)

// dockerTimeout bounds Docker API calls made for display only.
const dockerTimeout = 5 * time.Second

// project is a loaded configuration with a controller bound to it.
type project struct {
	cfg   *config.Config
	ctrl  *lifecycle.Controller
	log   *slog.Logger
	close func()
}

// newLogger builds the diagnostic logger on stderr. --verbose forces debug.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newDeployer wires docker and kubectl for cfg. Tests replace it.
var newDeployer = func(cfg *config.Config, log *slog.Logger) (lifecycle.Deployer, func()) {
	opts := deploy.Options{
		Dir:         cfg.Root,
		ComposeFile: cfg.ComposePath(),
		Kubectl:     cfg.Deploy.Kubectl,
		KubeContext: cfg.Deploy.KubeContext,
		Timeout:     cfg.Deploy.Timeout,
		Logger:      log,
	}

	cleanup := func() {}
	if client, err := docker.NewClient(); err == nil {
		opts.Images = client
		cleanup = func() { client.Close() }
	} else {
		log.Debug("docker API unavailable, falling back to the docker CLI", "error", err)
	}

	runner := &deploy.ExecRunner{}
	if verbose {
		runner.Stdout = os.Stderr
	}
	return deploy.NewDeployer(runner, opts), cleanup
}

// openProject loads the configuration of the project containing the working
// directory.
func openProject() (*project, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return openConfig(cfg)
}

func openConfig(cfg *config.Config) (*project, error) {
	log := newLogger(cfg.LogLevel)
	deployer, cleanup := newDeployer(cfg, log)

	ctrl, err := lifecycle.New(lifecycle.Options{
		Config:   cfg,
		Deployer: deployer,
		Logger:   log,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	log.Debug("project loaded", "root", cfg.Root)
	return &project{cfg: cfg, ctrl: ctrl, log: log, close: cleanup}, nil
}

// withDockerClient executes a function with a Docker client, handling connection and cleanup.
func withDockerClient(fn func(ctx context.Context, client *docker.Client) error) error {
	client, err := docker.NewClient()
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dockerTimeout)
	defer cancel()
	return fn(ctx, client)
}

// printLines prints up to limit lines of text indented, noting how many were cut.
func printLines(text string, limit int) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	n := min(len(lines), limit)
	for _, line := range lines[:n] {
		fmt.Printf("  %s\n", line)
	}
	if len(lines) > n {
		fmt.Printf("  ... (%d more lines)\n", len(lines)-n)
	}
}
