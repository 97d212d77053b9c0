package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/fileutil"
	"github.com/cameronsjo/punch/internal/manifest"
	"github.com/cameronsjo/punch/internal/registry"
	"github.com/cameronsjo/punch/internal/snapshot"
)

// Listing is the registered topology.
type Listing struct {
	BasePort int
	// Services are sorted by port.
	Services []registry.ServiceEntry
	// Components are sorted by name.
	Components []string
	// NextPort is the port the next service would get.
	NextPort int
}

// Empty reports whether nothing is registered.
func (l *Listing) Empty() bool {
	return len(l.Services) == 0 && len(l.Components) == 0
}

// List returns the registered services and deployed components. It reads
// without the lock and never writes, so a fresh project stays untouched.
func (c *Controller) List() (*Listing, error) {
	reg, err := c.store.Read()
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		BasePort:   reg.BasePort,
		Services:   reg.ServiceEntries(),
		Components: reg.DeployedComponents(),
	}
	if next, err := registry.NextPort(reg); err == nil {
		listing.NextPort = next
	}
	return listing, nil
}

// InitResult describes what Init created.
type InitResult struct {
	// Created lists state files that did not exist before, relative to root.
	Created []string
}

// Init creates the registry and the base compose document when missing.
// Existing files are left untouched.
func (c *Controller) Init() (*InitResult, error) {
	res := &InitResult{}
	if !fileutil.Exists(c.cfg.RegistryPath()) {
		res.Created = append(res.Created, c.cfg.Rel(c.cfg.RegistryPath()))
	}
	err := c.run("init", func(op *operation) error {
		// run has already persisted a default registry if there was none.
		if !fileutil.Exists(c.cfg.ComposePath()) {
			base, err := manifest.BaseComposeDocument()
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(c.cfg.ComposePath(), []byte(base), 0644); err != nil {
				return fmt.Errorf("write compose file: %w", err)
			}
			res.Created = append(res.Created, c.cfg.Rel(c.cfg.ComposePath()))
		}
		if err := os.MkdirAll(c.cfg.ServicesPath(), 0755); err != nil {
			return fmt.Errorf("create services directory: %w", err)
		}
		return nil
	})
	return res, err
}

// History lists state snapshots, newest first.
func (c *Controller) History() ([]snapshot.SnapshotInfo, error) {
	return c.snaps.List()
}

// RollbackResult describes a restored snapshot.
type RollbackResult struct {
	Snapshot string
	// ComposeDiff shows how the compose document changed.
	ComposeDiff string
}

// Rollback restores the registry and compose document from a snapshot, the
// latest one when name is empty. Service and component directories are not
// touched.
func (c *Controller) Rollback(name string) (*RollbackResult, error) {
	var res *RollbackResult
	err := c.run("rollback", func(op *operation) error {
		if name == "" {
			latest, err := c.snaps.Latest()
			if err != nil {
				return err
			}
			name = latest.Name
		}

		before, err := os.ReadFile(c.cfg.ComposePath())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read compose file: %w", err)
		}

		if err := c.snaps.Restore(name); err != nil {
			return err
		}

		after, err := os.ReadFile(c.cfg.ComposePath())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read compose file: %w", err)
		}
		if _, err := c.store.Load(); err != nil {
			return fmt.Errorf("restored registry is unusable: %w", err)
		}

		res = &RollbackResult{
			Snapshot:    name,
			ComposeDiff: compose.Diff(string(before), string(after)),
		}
		c.log.Info("state rolled back", "snapshot", name)
		return nil
	})
	return res, err
}

// Drift lists mismatches between the registry and what is on disk.
type Drift struct {
	// MissingBlocks are registered names without a compose block.
	MissingBlocks []string
	// UnregisteredBlocks are compose blocks that are neither registered nor
	// infrastructure services.
	UnregisteredBlocks []string
	// MissingDirs are registered names whose directory is gone.
	MissingDirs []string
	// UnregisteredDirs are service directories without a registry entry.
	UnregisteredDirs []string
}

// Clean reports whether registry and disk agree.
func (d *Drift) Clean() bool {
	return len(d.MissingBlocks) == 0 && len(d.UnregisteredBlocks) == 0 &&
		len(d.MissingDirs) == 0 && len(d.UnregisteredDirs) == 0
}

// CheckDrift compares the registry with the compose document and the
// service directories.
func (c *Controller) CheckDrift() (*Drift, error) {
	reg, err := c.store.Read()
	if err != nil {
		return nil, err
	}
	doc, err := compose.ReadFile(c.cfg.ComposePath())
	if err != nil {
		return nil, err
	}

	drift := &Drift{}
	registered := map[string]string{}
	for _, svc := range reg.ServiceEntries() {
		registered[svc.Name] = c.cfg.ServicePath(svc.Name)
	}
	for _, comp := range reg.DeployedComponents() {
		registered[comp] = c.cfg.ComponentPath(comp)
	}

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if !doc.Has(name) {
			drift.MissingBlocks = append(drift.MissingBlocks, name)
		}
		if !fileutil.Exists(registered[name]) {
			drift.MissingDirs = append(drift.MissingDirs, name)
		}
	}

	for _, name := range doc.Names() {
		if _, ok := registered[name]; ok || slices.Contains(manifest.InfraServices, name) {
			continue
		}
		drift.UnregisteredBlocks = append(drift.UnregisteredBlocks, name)
	}

	entries, err := os.ReadDir(c.cfg.ServicesPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read services directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && !reg.HasService(e.Name()) && e.Name()[0] != '.' {
			drift.UnregisteredDirs = append(drift.UnregisteredDirs, e.Name())
		}
	}

	return drift, nil
}
