package deploy

import (
	"context"
	"log/slog"
	"time"
)

// Step names reported in ExecutorError.
const (
	StepBuild         = "build"
	StepComposeUp     = "compose up"
	StepClusterApply  = "cluster apply"
	StepClusterDelete = "cluster delete"
	StepImageRemove   = "image remove"
)

// ImageRemover removes images through the Docker API.
type ImageRemover interface {
	RemoveImage(ctx context.Context, ref string) (int, error)
}

// Options configures a Deployer.
type Options struct {
	// Dir is the project root commands run in.
	Dir string
	// ComposeFile is the compose file path passed to docker compose.
	ComposeFile string
	// Kubectl is the kubectl binary; defaults to "kubectl".
	Kubectl string
	// KubeContext selects a kubectl context when set.
	KubeContext string
	// Timeout bounds each command when positive.
	Timeout time.Duration
	// Images removes images through the Docker API when set; otherwise
	// "docker rmi" is used.
	Images ImageRemover
	Logger *slog.Logger
}

// Deployer drives docker and kubectl for one project.
type Deployer struct {
	runner Runner
	opts   Options
	log    *slog.Logger
}

// NewDeployer creates a Deployer that runs commands through runner.
func NewDeployer(runner Runner, opts Options) *Deployer {
	if opts.Kubectl == "" {
		opts.Kubectl = "kubectl"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Deployer{runner: runner, opts: opts, log: log}
}

// ImageRef is the image reference built for a service or component.
func ImageRef(name string) string {
	return name + ":latest"
}

// BuildImage builds name:latest from the Dockerfile in contextDir.
func (d *Deployer) BuildImage(ctx context.Context, name, contextDir string) error {
	return d.run(ctx, StepBuild, Command{
		Name: "docker",
		Args: []string{"build", "-t", ImageRef(name), contextDir},
		Dir:  d.opts.Dir,
	})
}

// ComposeUp starts the compose project, or only the named services.
func (d *Deployer) ComposeUp(ctx context.Context, services ...string) error {
	args := []string{"compose", "-f", d.opts.ComposeFile, "up", "-d"}
	args = append(args, services...)
	return d.run(ctx, StepComposeUp, Command{Name: "docker", Args: args, Dir: d.opts.Dir})
}

// ClusterApply applies manifest files to the cluster.
func (d *Deployer) ClusterApply(ctx context.Context, manifests ...string) error {
	for _, m := range manifests {
		if err := d.run(ctx, StepClusterApply, d.kubectl("apply", "-f", m)); err != nil {
			return err
		}
	}
	return nil
}

// ClusterDelete deletes the cluster objects described by manifest files.
// Objects that are already gone are not an error.
func (d *Deployer) ClusterDelete(ctx context.Context, manifests ...string) error {
	for _, m := range manifests {
		if err := d.run(ctx, StepClusterDelete, d.kubectl("delete", "--ignore-not-found", "-f", m)); err != nil {
			return err
		}
	}
	return nil
}

// RemoveImage removes name:latest.
func (d *Deployer) RemoveImage(ctx context.Context, name string) error {
	ref := ImageRef(name)
	if d.opts.Images == nil {
		return d.run(ctx, StepImageRemove, Command{Name: "docker", Args: []string{"rmi", ref}, Dir: d.opts.Dir})
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	layers, err := d.opts.Images.RemoveImage(ctx, ref)
	if err != nil {
		return &ExecutorError{Step: StepImageRemove, Command: "docker api: remove " + ref, ExitCode: -1, Err: err}
	}
	d.log.Debug("image removed", "image", ref, "layers", layers)
	return nil
}

func (d *Deployer) kubectl(args ...string) Command {
	if d.opts.KubeContext != "" {
		args = append([]string{"--context", d.opts.KubeContext}, args...)
	}
	return Command{Name: d.opts.Kubectl, Args: args, Dir: d.opts.Dir}
}

func (d *Deployer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.opts.Timeout > 0 {
		return context.WithTimeout(ctx, d.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (d *Deployer) run(ctx context.Context, step string, cmd Command) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	d.log.Debug("running command", "step", step, "command", cmd.String())
	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return &ExecutorError{Step: step, Command: cmd.String(), ExitCode: -1, Output: res.Output, Err: err}
	}
	if !res.Success() {
		return &ExecutorError{Step: step, Command: cmd.String(), ExitCode: res.ExitCode, Output: res.Output}
	}

	d.log.Debug("command finished", "step", step, "duration", res.Duration)
	return nil
}
