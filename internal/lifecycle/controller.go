// Package lifecycle orchestrates creating, listing and removing services and
// components. It is the only code that mutates the registry: every operation
// loads it once, works through its steps in order and commits it last.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/lock"
	"github.com/cameronsjo/punch/internal/registry"
	"github.com/cameronsjo/punch/internal/scaffold"
	"github.com/cameronsjo/punch/internal/snapshot"
)

// Artifact file names written into every service directory.
const (
	BuildFileName         = "Dockerfile"
	DeploymentFileName    = "k8s-deployment.yaml"
	ClusterServiceName    = "k8s-service.yaml"
	EnvironmentFileName   = ".env"
	PackageManifestName   = "package.json"
	topologyLockOperation = "topology"
)

var (
	// ErrNotFound indicates the name is neither a registered service nor a
	// deployed component.
	ErrNotFound = errors.New("no such service or component")

	// ErrReservedName indicates the name belongs to a component kind or an
	// infrastructure service.
	ErrReservedName = errors.New("name is reserved")
)

// Deployer runs the external build, start and cluster steps.
type Deployer interface {
	BuildImage(ctx context.Context, name, contextDir string) error
	ComposeUp(ctx context.Context, services ...string) error
	ClusterApply(ctx context.Context, manifests ...string) error
	ClusterDelete(ctx context.Context, manifests ...string) error
	RemoveImage(ctx context.Context, name string) error
}

// Options configures a Controller.
type Options struct {
	Config *config.Config
	// Template overrides the service template. When nil, the configured
	// template directory or the built-in template is used.
	Template *scaffold.Template
	Deployer Deployer
	Logger   *slog.Logger
}

// Controller runs lifecycle operations against one project.
type Controller struct {
	cfg      *config.Config
	store    *registry.Store
	snaps    *snapshot.Store
	tmpl     *scaffold.Template
	deployer Deployer
	log      *slog.Logger
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, errors.New("lifecycle: config is required")
	}
	if opts.Deployer == nil {
		return nil, errors.New("lifecycle: deployer is required")
	}

	cfg := opts.Config
	tmpl := opts.Template
	if tmpl == nil {
		if dir := cfg.TemplatePath(); dir != "" {
			t, err := scaffold.FromDir(dir)
			if err != nil {
				return nil, err
			}
			tmpl = t
		} else {
			tmpl = scaffold.DefaultTemplate()
		}
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Controller{
		cfg:      cfg,
		store:    registry.NewStore(cfg.RegistryPath(), cfg.BasePort),
		snaps:    snapshot.New(cfg.Root, cfg.StateDir(), cfg.Rel(cfg.RegistryPath()), cfg.Rel(cfg.ComposePath())),
		tmpl:     tmpl,
		deployer: opts.Deployer,
		log:      log,
	}, nil
}

// Snapshots returns the snapshot store holding the state history.
func (c *Controller) Snapshots() *snapshot.Store {
	return c.snaps
}

// operation is one locked load-mutate-commit cycle.
type operation struct {
	c        *Controller
	label    string
	reg      *registry.Registry
	snapshot string
}

// checkpoint snapshots the state files before the first mutation.
func (op *operation) checkpoint() error {
	if op.snapshot != "" {
		return nil
	}
	name, err := op.c.snaps.Create(op.label)
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	op.snapshot = name
	op.c.log.Debug("state snapshot created", "snapshot", name, "operation", op.label)
	return nil
}

// commit persists the registry.
func (op *operation) commit() error {
	return op.c.store.Save(op.reg)
}

// run loads the registry under the topology lock and hands it to fn.
func (c *Controller) run(label string, fn func(op *operation) error) error {
	return lock.WithLock(c.cfg.StateDir(), topologyLockOperation, func() error {
		reg, err := c.store.Load()
		if err != nil {
			return err
		}
		return fn(&operation{c: c, label: label, reg: reg})
	})
}
