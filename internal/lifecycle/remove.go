package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/deploy"
	"github.com/cameronsjo/punch/internal/frontend"
	"github.com/cameronsjo/punch/internal/manifest"
)

// Kind tells services and components apart in results.
type Kind string

const (
	KindService   Kind = "service"
	KindComponent Kind = "component"
)

// Teardown steps reported in StepFailure.
const (
	StepClusterDelete = deploy.StepClusterDelete
	StepImageRemove   = deploy.StepImageRemove
	StepComposeRemove = "compose remove"
	StepDeleteFiles   = "delete files"
)

// RemoveOptions controls teardown.
type RemoveOptions struct {
	// SkipExternal skips the cluster and image steps and only cleans up
	// local state.
	SkipExternal bool
}

// StepFailure is a teardown step that failed without stopping the removal.
type StepFailure struct {
	Step string
	Err  error
}

func (f StepFailure) Error() string {
	return f.Step + ": " + f.Err.Error()
}

func (f StepFailure) Unwrap() error {
	return f.Err
}

// RemoveResult describes a completed removal.
type RemoveResult struct {
	Name     string
	Kind     Kind
	Port     int
	Snapshot string
	Failures []StepFailure
}

// Err joins the step failures, or returns nil when every step succeeded.
func (r *RemoveResult) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Remove tears down a service or deployed component. An unknown name fails
// with ErrNotFound before anything is touched. After that every step is
// best-effort: failures are collected in the result and the registry entry
// is removed regardless. Only a failed registry commit returns an error.
func (c *Controller) Remove(ctx context.Context, name string, opts RemoveOptions) (*RemoveResult, error) {
	var res *RemoveResult
	err := c.run("remove "+name, func(op *operation) error {
		var kind Kind
		var dir string
		switch {
		case op.reg.HasService(name):
			kind, dir = KindService, c.cfg.ServicePath(name)
		case manifest.IsComponentKind(name) && op.reg.HasComponent(name):
			kind, dir = KindComponent, c.cfg.ComponentPath(name)
		default:
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		if err := op.checkpoint(); err != nil {
			return err
		}
		port, _ := op.reg.Port(name)
		res = &RemoveResult{Name: name, Kind: kind, Port: port, Snapshot: op.snapshot}
		fail := func(step string, err error) {
			c.log.Warn("teardown step failed", "name", name, "step", step, "error", err)
			res.Failures = append(res.Failures, StepFailure{Step: step, Err: err})
		}

		if !opts.SkipExternal {
			if kind == KindService {
				if err := c.clusterDelete(ctx, dir); err != nil {
					fail(StepClusterDelete, err)
				}
			}
			if err := c.deployer.RemoveImage(ctx, name); err != nil {
				fail(StepImageRemove, err)
			}
		}

		err := compose.MutateFile(c.cfg.ComposePath(), func(doc *compose.Document) error {
			return doc.Remove(name)
		})
		if err != nil {
			fail(StepComposeRemove, err)
		}

		if err := os.RemoveAll(dir); err != nil {
			fail(StepDeleteFiles, err)
		}
		if kind == KindService {
			if err := frontend.Remove(c.cfg.Root, frontend.Files(name)); err != nil {
				fail(StepDeleteFiles, err)
			}
			op.reg.RemoveService(name)
		} else {
			op.reg.RemoveComponent(name)
		}

		if err := op.commit(); err != nil {
			return err
		}
		c.log.Info(string(kind)+" removed", "name", name, "failures", len(res.Failures))
		return nil
	})
	return res, err
}

func (c *Controller) clusterDelete(ctx context.Context, dir string) error {
	manifests := []string{filepath.Join(dir, DeploymentFileName), filepath.Join(dir, ClusterServiceName)}
	for _, m := range manifests {
		if _, err := os.Stat(m); err != nil {
			return fmt.Errorf("cluster manifest unavailable: %w", err)
		}
	}
	return c.deployer.ClusterDelete(ctx, manifests...)
}
