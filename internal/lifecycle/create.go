package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/fileutil"
	"github.com/cameronsjo/punch/internal/frontend"
	"github.com/cameronsjo/punch/internal/manifest"
	"github.com/cameronsjo/punch/internal/registry"
	"github.com/cameronsjo/punch/internal/scaffold"
	"github.com/cameronsjo/punch/internal/vcs"
)

// CreateOptions controls optional create steps.
type CreateOptions struct {
	// Deploy builds the image, starts the compose service and applies the
	// cluster manifests.
	Deploy bool
	// Redux generates frontend slice and selector files.
	Redux bool
	// Git initializes a repository in the service directory.
	Git     bool
	Author  string
	License string
}

// AppOptions controls create-app.
type AppOptions struct {
	CreateOptions
	// Exclude lists component kinds not to create.
	Exclude []string
}

// ServiceResult describes a created service.
type ServiceResult struct {
	Name string
	Port int
	Dir  string
	// PortReused is set when the count-based port was taken and a freed
	// port was handed out instead.
	PortReused bool
	// Files lists written paths relative to the project root.
	Files    []string
	Commit   string
	Snapshot string
	// Registered is set once the registry entry has been committed.
	Registered bool
}

// AppResult describes a create-app run.
type AppResult struct {
	Service *ServiceResult
	// Components lists components created by this run.
	Components []string
	// Skipped lists components already deployed.
	Skipped []string
}

type artifact struct {
	name    string
	content string
}

// CreateService scaffolds a service, writes its artifacts, adds it to the
// compose document and registers it.
//
// Failures before the compose insert remove the service directory. Deploy
// failures leave the artifacts in place and the service unregistered.
func (c *Controller) CreateService(ctx context.Context, name string, opts CreateOptions) (*ServiceResult, error) {
	var res *ServiceResult
	err := c.run("create-service "+name, func(op *operation) error {
		var err error
		res, err = c.createService(ctx, op, name, opts)
		return err
	})
	return res, err
}

// CreateApp creates a service and then every component that is neither
// excluded nor already deployed.
func (c *Controller) CreateApp(ctx context.Context, name string, opts AppOptions) (*AppResult, error) {
	for _, x := range opts.Exclude {
		if !manifest.IsComponentKind(x) {
			return nil, fmt.Errorf("%w: cannot exclude unknown component %q (known: %s)",
				manifest.ErrInvalidDescriptor, x, strings.Join(manifest.ComponentNames(), ", "))
		}
	}

	res := &AppResult{}
	err := c.run("create-app "+name, func(op *operation) error {
		svc, err := c.createService(ctx, op, name, opts.CreateOptions)
		res.Service = svc
		if err != nil {
			return err
		}

		for _, kind := range manifest.ComponentOrder {
			if slices.Contains(opts.Exclude, kind) {
				continue
			}
			if op.reg.HasComponent(kind) {
				res.Skipped = append(res.Skipped, kind)
				continue
			}
			if err := c.createComponent(ctx, op, kind, opts.CreateOptions); err != nil {
				return fmt.Errorf("component %s: %w", kind, err)
			}
			res.Components = append(res.Components, kind)
		}
		return nil
	})
	return res, err
}

func (c *Controller) checkServiceName(reg *registry.Registry, name string) error {
	if err := manifest.ValidateName(name); err != nil {
		return err
	}
	if manifest.IsComponentKind(name) || slices.Contains(manifest.InfraServices, name) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	if reg.HasService(name) {
		return fmt.Errorf("%w: %s", registry.ErrServiceExists, name)
	}
	return nil
}

func (c *Controller) createService(ctx context.Context, op *operation, name string, opts CreateOptions) (*ServiceResult, error) {
	if err := c.checkServiceName(op.reg, name); err != nil {
		return nil, err
	}

	port, err := registry.NextPort(op.reg)
	if err != nil {
		return nil, err
	}
	reused := registry.IsStale(op.reg)
	if reused {
		c.log.Warn("count-based port already taken, reusing a freed port",
			"service", name, "candidate", registry.CountPort(op.reg), "port", port)
	}

	author := firstNonEmpty(opts.Author, c.cfg.Author)
	license := firstNonEmpty(opts.License, c.cfg.License)
	desc := manifest.ServiceDescriptor{
		Name:       name,
		Port:       port,
		Author:     author,
		License:    license,
		EntryPoint: c.tmpl.EntryPoint,
	}

	dir := c.cfg.ServicePath(name)
	artifacts, err := serviceArtifacts(desc)
	if err != nil {
		return nil, err
	}
	block, err := manifest.ServiceComposeBlock(desc, c.buildContext(dir))
	if err != nil {
		return nil, err
	}

	if err := op.checkpoint(); err != nil {
		return nil, err
	}

	res := &ServiceResult{Name: name, Port: port, Dir: dir, PortReused: reused, Snapshot: op.snapshot}
	c.log.Debug("instantiating template", "template", c.tmpl.Name, "dest", dir, "port", port)
	scaffolded, err := scaffold.Instantiate(c.tmpl, dir, scaffold.Tokens{Name: name, Port: port})
	if err != nil {
		return nil, err
	}
	for _, rel := range scaffolded.Renamed {
		res.Files = append(res.Files, c.cfg.Rel(filepath.Join(dir, rel)))
	}
	slices.Sort(res.Files)

	var generated []string
	rollback := func(cause error) error {
		if err := os.RemoveAll(dir); err != nil {
			c.log.Error("rollback failed", "path", dir, "error", err)
		}
		if err := frontend.Remove(c.cfg.Root, generated); err != nil {
			c.log.Error("rollback failed", "files", generated, "error", err)
		}
		return cause
	}

	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := fileutil.WriteFileAtomic(path, []byte(a.content), 0644); err != nil {
			return nil, rollback(&scaffold.ScaffoldError{Op: "write", Path: path, Err: err})
		}
		res.Files = append(res.Files, c.cfg.Rel(path))
	}

	if opts.Redux {
		generated, err = frontend.Generate(c.cfg.Root, name)
		if err != nil {
			return nil, rollback(fmt.Errorf("generate redux files: %w", err))
		}
		for _, p := range generated {
			res.Files = append(res.Files, c.cfg.Rel(p))
		}
	}

	if opts.Git {
		hash, err := vcs.InitRepository(dir, vcs.Signature{Name: author}, "Scaffold "+name)
		if err != nil {
			return nil, rollback(fmt.Errorf("initialize git repository: %w", err))
		}
		res.Commit = hash
	}

	if opts.Deploy {
		if err := c.deployer.BuildImage(ctx, name, dir); err != nil {
			return res, c.unregistered(name, err)
		}
	}

	if err := c.insertComposeBlock(name, block); err != nil {
		return nil, rollback(err)
	}

	if opts.Deploy {
		if err := c.deployer.ComposeUp(ctx, name); err != nil {
			return res, c.unregistered(name, err)
		}
		manifests := []string{filepath.Join(dir, DeploymentFileName), filepath.Join(dir, ClusterServiceName)}
		if err := c.deployer.ClusterApply(ctx, manifests...); err != nil {
			return res, c.unregistered(name, err)
		}
	}

	if err := op.reg.AddService(name, port); err != nil {
		return res, err
	}
	if err := op.commit(); err != nil {
		return res, err
	}
	res.Registered = true

	c.log.Info("service created", "service", name, "port", port, "dir", c.cfg.Rel(dir))
	return res, nil
}

func (c *Controller) unregistered(name string, err error) error {
	c.log.Warn("deploy step failed, service left unregistered", "service", name, "error", err)
	return fmt.Errorf("%s: artifacts kept but service not registered: %w", name, err)
}

func (c *Controller) createComponent(ctx context.Context, op *operation, name string, opts CreateOptions) error {
	comp := manifest.ComponentDescriptor{Name: name}
	if err := comp.Validate(); err != nil {
		return err
	}
	if err := op.checkpoint(); err != nil {
		return err
	}

	dir := c.cfg.ComponentPath(name)
	created := !fileutil.Exists(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &scaffold.ScaffoldError{Op: "mkdir", Path: dir, Err: err}
	}
	rollback := func(cause error) error {
		if created {
			os.RemoveAll(dir)
		}
		return cause
	}

	kind := manifest.Components[name]
	pkg, err := manifest.PackageManifest(manifest.ServiceDescriptor{Name: name, Port: kind.Port},
		firstNonEmpty(opts.Author, c.cfg.Author), firstNonEmpty(opts.License, c.cfg.License))
	if err != nil {
		return rollback(err)
	}
	build, err := manifest.ComponentBuildFile(comp)
	if err != nil {
		return rollback(err)
	}

	if err := writeIfAbsent(filepath.Join(dir, PackageManifestName), pkg); err != nil {
		return rollback(err)
	}
	if err := writeIfAbsent(filepath.Join(dir, BuildFileName), build); err != nil {
		return rollback(err)
	}

	if opts.Deploy {
		if err := c.deployer.BuildImage(ctx, name, dir); err != nil {
			return c.unregistered(name, err)
		}
	}

	block, err := manifest.ComponentComposeBlock(comp, c.buildContext(dir))
	if err != nil {
		return rollback(err)
	}
	err = compose.MutateFile(c.cfg.ComposePath(), func(doc *compose.Document) error {
		if doc.Has(name) {
			c.log.Debug("compose block already present", "component", name)
			return nil
		}
		return c.seed(doc).Insert(name, block)
	})
	if err != nil {
		return rollback(err)
	}

	if opts.Deploy {
		if err := c.deployer.ComposeUp(ctx, name); err != nil {
			return c.unregistered(name, err)
		}
	}

	op.reg.SetComponent(name)
	if err := op.commit(); err != nil {
		return err
	}
	c.log.Info("component created", "component", name, "dir", c.cfg.Rel(dir))
	return nil
}

func (c *Controller) insertComposeBlock(name, block string) error {
	return compose.MutateFile(c.cfg.ComposePath(), func(doc *compose.Document) error {
		return c.seed(doc).Insert(name, block)
	})
}

// seed fills an empty compose document with the base infrastructure
// services so the first block lands in a services section.
func (c *Controller) seed(doc *compose.Document) *compose.Document {
	if strings.TrimSpace(doc.String()) != "" {
		return doc
	}
	base, err := manifest.BaseComposeDocument()
	if err != nil {
		c.log.Error("render base compose document", "error", err)
		return doc
	}
	*doc = *compose.Parse(base)
	return doc
}

// buildContext is dir relative to the compose file, in compose notation.
func (c *Controller) buildContext(dir string) string {
	rel, err := filepath.Rel(filepath.Dir(c.cfg.ComposePath()), dir)
	if err != nil {
		return dir
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

func serviceArtifacts(d manifest.ServiceDescriptor) ([]artifact, error) {
	renderers := []struct {
		name   string
		render func() (string, error)
	}{
		{BuildFileName, func() (string, error) { return manifest.BuildFile(d) }},
		{DeploymentFileName, func() (string, error) { return manifest.ClusterDeployment(d) }},
		{ClusterServiceName, func() (string, error) { return manifest.ClusterService(d) }},
		{EnvironmentFileName, func() (string, error) { return manifest.EnvironmentFile(d) }},
		{PackageManifestName, func() (string, error) { return manifest.PackageManifest(d, d.Author, d.License) }},
	}

	out := make([]artifact, 0, len(renderers))
	for _, r := range renderers {
		content, err := r.render()
		if err != nil {
			return nil, err
		}
		out = append(out, artifact{name: r.name, content: content})
	}
	return out, nil
}

func writeIfAbsent(path, content string) error {
	if fileutil.Exists(path) {
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0644); err != nil {
		return &scaffold.ScaffoldError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
