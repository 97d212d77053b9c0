package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/punch/internal/compose"
	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/deploy"
	"github.com/cameronsjo/punch/internal/lock"
	"github.com/cameronsjo/punch/internal/manifest"
	"github.com/cameronsjo/punch/internal/registry"
	"github.com/cameronsjo/punch/internal/scaffold"
)

// fakeDeployer records calls and fails the steps listed in fail.
type fakeDeployer struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDeployer) record(step, arg string) error {
	f.calls = append(f.calls, step+" "+arg)
	return f.fail[step]
}

func (f *fakeDeployer) BuildImage(_ context.Context, name, _ string) error {
	return f.record(deploy.StepBuild, name)
}

func (f *fakeDeployer) ComposeUp(_ context.Context, services ...string) error {
	return f.record(deploy.StepComposeUp, strings.Join(services, ","))
}

func (f *fakeDeployer) ClusterApply(_ context.Context, manifests ...string) error {
	return f.record(deploy.StepClusterApply, baseNames(manifests))
}

func (f *fakeDeployer) ClusterDelete(_ context.Context, manifests ...string) error {
	return f.record(deploy.StepClusterDelete, baseNames(manifests))
}

func (f *fakeDeployer) RemoveImage(_ context.Context, name string) error {
	return f.record(deploy.StepImageRemove, name)
}

func baseNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ",")
}

func executorError(step string) error {
	return &deploy.ExecutorError{Step: step, Command: "fake", ExitCode: 1, Output: "boom"}
}

type fixture struct {
	root     string
	cfg      *config.Config
	deployer *fakeDeployer
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.LoadFrom(root)
	require.NoError(t, err)

	d := &fakeDeployer{fail: map[string]error{}}
	ctrl, err := New(Options{
		Config:   cfg,
		Deployer: d,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	_, err = ctrl.Init()
	require.NoError(t, err)

	return &fixture{root: root, cfg: cfg, deployer: d, ctrl: ctrl}
}

func (f *fixture) registry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewStore(f.cfg.RegistryPath(), 0).Load()
	require.NoError(t, err)
	return reg
}

func (f *fixture) compose(t *testing.T) *compose.Document {
	t.Helper()
	doc, err := compose.ReadFile(f.cfg.ComposePath())
	require.NoError(t, err)
	return doc
}

func (f *fixture) composeText(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.cfg.ComposePath())
	require.NoError(t, err)
	return string(data)
}

func TestNew_RequiresConfigAndDeployer(t *testing.T) {
	_, err := New(Options{Deployer: &fakeDeployer{}})
	assert.Error(t, err)

	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	_, err = New(Options{Config: cfg})
	assert.Error(t, err)
}

func TestNew_TemplateDirMissing(t *testing.T) {
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.TemplateDir = "does-not-exist"

	_, err = New(Options{Config: cfg, Deployer: &fakeDeployer{}})
	assert.ErrorIs(t, err, scaffold.ErrTemplateIntegrity)
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.LoadFrom(root)
	require.NoError(t, err)
	ctrl, err := New(Options{Config: cfg, Deployer: &fakeDeployer{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	first, err := ctrl.Init()
	require.NoError(t, err)
	assert.Equal(t, []string{".punch/registry.json", "docker-compose.yml"}, first.Created)

	f := &fixture{root: root, cfg: cfg, ctrl: ctrl}

	assert.FileExists(t, f.cfg.RegistryPath())
	assert.DirExists(t, f.cfg.ServicesPath())
	assert.Equal(t, []string{"mongodb", "rabbitmq", "redis"}, f.compose(t).Names())

	// A second init leaves an edited compose file alone.
	require.NoError(t, os.WriteFile(f.cfg.ComposePath(), []byte("services:\n  custom:\n    image: x\n"), 0644))
	res, err := f.ctrl.Init()
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"custom"}, f.compose(t).Names())
}

func TestCreateService(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3000, res.Port)
	assert.False(t, res.PortReused)
	assert.NotEmpty(t, res.Snapshot)
	assert.True(t, res.Registered)
	assert.Equal(t, f.cfg.ServicePath("orders"), res.Dir)

	for _, name := range []string{BuildFileName, DeploymentFileName, ClusterServiceName, EnvironmentFileName, PackageManifestName} {
		assert.FileExists(t, filepath.Join(res.Dir, name))
		assert.Contains(t, res.Files, filepath.Join("services", "orders", name))
	}
	assert.FileExists(t, filepath.Join(res.Dir, "controllers", "ordersController.js"))

	port, ok := f.registry(t).Port("orders")
	assert.True(t, ok)
	assert.Equal(t, 3000, port)

	doc := f.compose(t)
	assert.Equal(t, []string{"mongodb", "rabbitmq", "redis", "orders"}, doc.Names())
	block, _ := doc.Block("orders")
	assert.Contains(t, block, "context: ./services/orders\n")
	assert.Contains(t, block, `- "3000:3000"`)

	// No deploy steps without Deploy.
	assert.Empty(t, f.deployer.calls)
}

func TestCreateService_Deploy(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{Deploy: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"build orders",
		"compose up orders",
		"cluster apply k8s-deployment.yaml,k8s-service.yaml",
	}, f.deployer.calls)
}

func TestCreateService_Rejects(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{})
	require.NoError(t, err)
	before := f.composeText(t)

	tests := []struct {
		name    string
		service string
		wantErr error
	}{
		{name: "duplicate", service: "orders", wantErr: registry.ErrServiceExists},
		{name: "invalid name", service: "Orders!", wantErr: manifest.ErrInvalidDescriptor},
		{name: "component kind", service: "gateway", wantErr: ErrReservedName},
		{name: "infra service", service: "redis", wantErr: ErrReservedName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctrl.CreateService(context.Background(), tt.service, CreateOptions{})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.composeText(t))
		})
	}
}

func TestCreateService_DestinationExists(t *testing.T) {
	f := newFixture(t)
	dir := f.cfg.ServicePath("orders")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("mine"), 0644))

	_, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{})
	assert.ErrorIs(t, err, scaffold.ErrDestinationExists)

	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
	assert.False(t, f.registry(t).HasService("orders"))
}

func TestCreateService_ComposeConflictRollsBack(t *testing.T) {
	f := newFixture(t)
	// A hand-written block with the same name is already in the document.
	doc := f.composeText(t)
	doc, err := compose.InsertBlock(doc, "orders", "  orders:\n    image: handmade\n")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.cfg.ComposePath(), []byte(doc), 0644))

	_, err = f.ctrl.CreateService(context.Background(), "orders", CreateOptions{Redux: true})
	assert.ErrorIs(t, err, compose.ErrDuplicateBlock)

	assert.NoDirExists(t, f.cfg.ServicePath("orders"))
	assert.NoFileExists(t, filepath.Join(f.root, "frontend", "slices", "ordersSlice.js"))
	assert.False(t, f.registry(t).HasService("orders"))
	assert.Equal(t, doc, f.composeText(t))
}

func TestCreateService_FailureIsolation(t *testing.T) {
	tests := []struct {
		name      string
		failStep  string
		wantBlock bool
		wantCalls []string
	}{
		{
			name:      "build",
			failStep:  deploy.StepBuild,
			wantBlock: false,
			wantCalls: []string{"build orders"},
		},
		{
			name:      "compose up",
			failStep:  deploy.StepComposeUp,
			wantBlock: true,
			wantCalls: []string{"build orders", "compose up orders"},
		},
		{
			name:      "cluster apply",
			failStep:  deploy.StepClusterApply,
			wantBlock: true,
			wantCalls: []string{"build orders", "compose up orders", "cluster apply k8s-deployment.yaml,k8s-service.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.deployer.fail[tt.failStep] = executorError(tt.failStep)

			res, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{Deploy: true})

			var execErr *deploy.ExecutorError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.failStep, execErr.Step)
			assert.Equal(t, tt.wantCalls, f.deployer.calls)

			// Artifacts stay on disk, the registry is not committed.
			require.NotNil(t, res)
			assert.False(t, res.Registered)
			assert.FileExists(t, filepath.Join(res.Dir, BuildFileName))
			assert.FileExists(t, filepath.Join(res.Dir, "index.js"))
			assert.False(t, f.registry(t).HasService("orders"))
			assert.Equal(t, tt.wantBlock, f.compose(t).Has("orders"))
		})
	}
}

func TestCreateService_Redux(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{Redux: true})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.root, "frontend", "slices", "ordersSlice.js"))
	assert.Contains(t, res.Files, filepath.Join("frontend", "selectors", "ordersSelectors.js"))
}

func TestCreateService_Git(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{Git: true, Author: "Ada"})
	require.NoError(t, err)
	assert.Len(t, res.Commit, 40)
	assert.DirExists(t, filepath.Join(res.Dir, ".git"))
}

func TestCreateService_PackageAuthorDefaults(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(res.Dir, PackageManifestName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"author": "Unknown"`)
	assert.Contains(t, string(data), `"license": "ISC"`)
}

func TestCreateService_HeldLock(t *testing.T) {
	f := newFixture(t)

	l := lock.New(f.cfg.StateDir(), topologyLockOperation)
	require.NoError(t, l.Acquire())
	defer l.Release()

	_, err := f.ctrl.CreateService(context.Background(), "orders", CreateOptions{})
	assert.ErrorIs(t, err, lock.ErrHeld)
	assert.NoDirExists(t, f.cfg.ServicePath("orders"))
}

func TestCreateApp(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.CreateApp(context.Background(), "orders", AppOptions{
		CreateOptions: CreateOptions{Author: "Ada", License: "MIT"},
		Exclude:       []string{"logging", "monitoring"},
	})
	require.NoError(t, err)

	assert.Equal(t, "orders", res.Service.Name)
	assert.Equal(t, []string{"gateway", "service-discovery", "auth-service", "config-service"}, res.Components)

	reg := f.registry(t)
	assert.Equal(t, []string{"auth-service", "config-service", "gateway", "service-discovery"}, reg.DeployedComponents())

	doc := f.compose(t)
	for _, name := range res.Components {
		assert.True(t, doc.Has(name), name)
		assert.FileExists(t, filepath.Join(f.cfg.ComponentPath(name), BuildFileName))
		assert.FileExists(t, filepath.Join(f.cfg.ComponentPath(name), PackageManifestName))
	}
	assert.False(t, doc.Has("logging"))

	gateway, _ := doc.Block("gateway")
	assert.Contains(t, gateway, `- "8080:8080"`)
	assert.Contains(t, gateway, "context: ./gateway\n")

	// A second app skips components already deployed.
	res, err = f.ctrl.CreateApp(context.Background(), "users", AppOptions{Exclude: []string{"logging", "monitoring"}})
	require.NoError(t, err)
	assert.Empty(t, res.Components)
	assert.Len(t, res.Skipped, 4)
	assert.Equal(t, 3001, res.Service.Port)
}

func TestCreateApp_UnknownExclude(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.CreateApp(context.Background(), "orders", AppOptions{Exclude: []string{"billing"}})
	assert.ErrorIs(t, err, manifest.ErrInvalidDescriptor)
	assert.NoDirExists(t, f.cfg.ServicePath("orders"))
}

func TestCreateApp_ComponentDeployFailure(t *testing.T) {
	f := newFixture(t)
	// Fail only the gateway build.
	d := &selectiveDeployer{fakeDeployer: f.deployer, failBuild: "gateway"}
	ctrl, err := New(Options{Config: f.cfg, Deployer: d, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	res, err := ctrl.CreateApp(context.Background(), "orders", AppOptions{CreateOptions: CreateOptions{Deploy: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component gateway")

	reg := f.registry(t)
	assert.True(t, reg.HasService("orders"))
	assert.False(t, reg.HasComponent("gateway"))
	assert.Empty(t, res.Components)
	assert.DirExists(t, f.cfg.ComponentPath("gateway"))
}

type selectiveDeployer struct {
	*fakeDeployer
	failBuild string
}

func (s *selectiveDeployer) BuildImage(ctx context.Context, name, dir string) error {
	if name == s.failBuild {
		s.calls = append(s.calls, "build "+name)
		return executorError(deploy.StepBuild)
	}
	return s.fakeDeployer.BuildImage(ctx, name, dir)
}

func TestList(t *testing.T) {
	f := newFixture(t)

	listing, err := f.ctrl.List()
	require.NoError(t, err)
	assert.True(t, listing.Empty())
	assert.Equal(t, 3000, listing.NextPort)

	_, err = f.ctrl.CreateService(context.Background(), "a", CreateOptions{})
	require.NoError(t, err)
	_, err = f.ctrl.CreateService(context.Background(), "b", CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, f.ctrl.run("component", func(op *operation) error {
		return f.ctrl.createComponent(context.Background(), op, "gateway", CreateOptions{})
	}))

	listing, err = f.ctrl.List()
	require.NoError(t, err)
	assert.Equal(t, []registry.ServiceEntry{{Name: "a", Port: 3000}, {Name: "b", Port: 3001}}, listing.Services)
	assert.Equal(t, []string{"gateway"}, listing.Components)
	assert.Equal(t, 3002, listing.NextPort)

	// Listing does not change anything.
	again, err := f.ctrl.List()
	require.NoError(t, err)
	assert.Equal(t, listing, again)
}

func TestList_FreshProjectWritesNothing(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.LoadFrom(root)
	require.NoError(t, err)
	ctrl, err := New(Options{
		Config:   cfg,
		Deployer: &fakeDeployer{fail: map[string]error{}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	listing, err := ctrl.List()
	require.NoError(t, err)
	assert.True(t, listing.Empty())
	assert.Equal(t, cfg.BasePort, listing.NextPort)

	_, err = ctrl.CheckDrift()
	require.NoError(t, err)

	assert.NoFileExists(t, cfg.RegistryPath())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemove_ThenList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beforeCreate := f.composeText(t)
	_, err := f.ctrl.CreateService(ctx, "orders", CreateOptions{Redux: true})
	require.NoError(t, err)

	res, err := f.ctrl.Remove(ctx, "orders", RemoveOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.NoError(t, res.Err())
	assert.Equal(t, KindService, res.Kind)
	assert.Equal(t, 3000, res.Port)

	assert.Equal(t, []string{
		"cluster delete k8s-deployment.yaml,k8s-service.yaml",
		"image remove orders",
	}, f.deployer.calls)

	assert.False(t, f.registry(t).HasService("orders"))
	assert.False(t, f.compose(t).Has("orders"))
	assert.Equal(t, beforeCreate, f.composeText(t))
	assert.NoDirExists(t, f.cfg.ServicePath("orders"))
	assert.NoFileExists(t, filepath.Join(f.root, "frontend", "slices", "ordersSlice.js"))

	listing, err := f.ctrl.List()
	require.NoError(t, err)
	assert.True(t, listing.Empty())

	// A second removal fails and changes nothing.
	registryBefore, err := os.ReadFile(f.cfg.RegistryPath())
	require.NoError(t, err)
	history, err := f.ctrl.History()
	require.NoError(t, err)
	calls := len(f.deployer.calls)

	_, err = f.ctrl.Remove(ctx, "orders", RemoveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	registryAfter, err := os.ReadFile(f.cfg.RegistryPath())
	require.NoError(t, err)
	assert.Equal(t, registryBefore, registryAfter)
	assert.Equal(t, beforeCreate, f.composeText(t))
	assert.Len(t, f.deployer.calls, calls)
	historyAfter, err := f.ctrl.History()
	require.NoError(t, err)
	assert.Len(t, historyAfter, len(history))
}

func TestRemove_BestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.CreateService(ctx, "orders", CreateOptions{})
	require.NoError(t, err)

	f.deployer.fail[deploy.StepClusterDelete] = executorError(deploy.StepClusterDelete)
	f.deployer.fail[deploy.StepImageRemove] = executorError(deploy.StepImageRemove)

	res, err := f.ctrl.Remove(ctx, "orders", RemoveOptions{})
	require.NoError(t, err)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, StepClusterDelete, res.Failures[0].Step)
	assert.Equal(t, StepImageRemove, res.Failures[1].Step)
	var execErr *deploy.ExecutorError
	assert.ErrorAs(t, res.Err(), &execErr)

	// Local teardown still happened.
	assert.False(t, f.registry(t).HasService("orders"))
	assert.False(t, f.compose(t).Has("orders"))
	assert.NoDirExists(t, f.cfg.ServicePath("orders"))
}

func TestRemove_MissingComposeBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.CreateService(ctx, "orders", CreateOptions{})
	require.NoError(t, err)
	out, err := compose.RemoveBlock(f.composeText(t), "orders")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.cfg.ComposePath(), []byte(out), 0644))

	res, err := f.ctrl.Remove(ctx, "orders", RemoveOptions{SkipExternal: true})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StepComposeRemove, res.Failures[0].Step)
	assert.ErrorIs(t, res.Err(), compose.ErrBlockNotFound)
	assert.False(t, f.registry(t).HasService("orders"))
	assert.Empty(t, f.deployer.calls)
}

func TestRemove_Component(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.CreateApp(ctx, "orders", AppOptions{})
	require.NoError(t, err)

	res, err := f.ctrl.Remove(ctx, "gateway", RemoveOptions{})
	require.NoError(t, err)
	assert.Equal(t, KindComponent, res.Kind)
	assert.Equal(t, []string{"image remove gateway"}, f.deployer.calls)

	reg := f.registry(t)
	assert.False(t, reg.HasComponent("gateway"))
	assert.True(t, reg.HasComponent("logging"))
	assert.False(t, f.compose(t).Has("gateway"))
	assert.NoDirExists(t, f.cfg.ComponentPath("gateway"))

	// Undeployed components are not found.
	_, err = f.ctrl.Remove(ctx, "gateway", RemoveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPortGapReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ctrl.CreateService(ctx, "a", CreateOptions{})
	require.NoError(t, err)
	b, err := f.ctrl.CreateService(ctx, "b", CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, 3000, a.Port)
	require.Equal(t, 3001, b.Port)

	_, err = f.ctrl.Remove(ctx, "a", RemoveOptions{})
	require.NoError(t, err)

	// The count-based candidate (3001) is still B's, so C takes A's old
	// port instead of colliding.
	c, err := f.ctrl.CreateService(ctx, "c", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3000, c.Port)
	assert.True(t, c.PortReused)

	reg := f.registry(t)
	assert.NoError(t, reg.Validate())
	assert.Equal(t, []registry.ServiceEntry{{Name: "c", Port: 3000}, {Name: "b", Port: 3001}}, reg.ServiceEntries())
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.composeText(t)

	res, err := f.ctrl.CreateService(ctx, "orders", CreateOptions{})
	require.NoError(t, err)

	rb, err := f.ctrl.Rollback(res.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, res.Snapshot, rb.Snapshot)
	assert.Contains(t, rb.ComposeDiff, "-   orders:")

	assert.Equal(t, before, f.composeText(t))
	assert.False(t, f.registry(t).HasService("orders"))

	// The service directory is left alone and now shows up as drift.
	drift, err := f.ctrl.CheckDrift()
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, drift.UnregisteredDirs)
}

func TestRollback_Latest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.Rollback("")
	assert.Error(t, err)

	_, err = f.ctrl.CreateService(ctx, "a", CreateOptions{})
	require.NoError(t, err)
	_, err = f.ctrl.CreateService(ctx, "b", CreateOptions{})
	require.NoError(t, err)

	_, err = f.ctrl.Rollback("")
	require.NoError(t, err)

	reg := f.registry(t)
	assert.True(t, reg.HasService("a"))
	assert.False(t, reg.HasService("b"))
}

func TestCheckDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drift, err := f.ctrl.CheckDrift()
	require.NoError(t, err)
	assert.True(t, drift.Clean())

	_, err = f.ctrl.CreateService(ctx, "orders", CreateOptions{})
	require.NoError(t, err)
	_, err = f.ctrl.CreateService(ctx, "users", CreateOptions{})
	require.NoError(t, err)

	// Drop a block, delete a directory and hand-add an unknown block.
	doc := f.composeText(t)
	doc, err = compose.RemoveBlock(doc, "orders")
	require.NoError(t, err)
	doc, err = compose.InsertBlock(doc, "legacy", "  legacy:\n    image: legacy\n")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.cfg.ComposePath(), []byte(doc), 0644))
	require.NoError(t, os.RemoveAll(f.cfg.ServicePath("users")))

	drift, err = f.ctrl.CheckDrift()
	require.NoError(t, err)
	assert.False(t, drift.Clean())
	assert.Equal(t, []string{"orders"}, drift.MissingBlocks)
	assert.Equal(t, []string{"legacy"}, drift.UnregisteredBlocks)
	assert.Equal(t, []string{"users"}, drift.MissingDirs)
	assert.Empty(t, drift.UnregisteredDirs)
}

func TestStepFailure(t *testing.T) {
	cause := errors.New("denied")
	f := StepFailure{Step: StepDeleteFiles, Err: cause}
	assert.Equal(t, "delete files: denied", f.Error())
	assert.ErrorIs(t, f, cause)

	res := &RemoveResult{}
	assert.NoError(t, res.Err())
	res.Failures = append(res.Failures, f)
	assert.EqualError(t, res.Err(), fmt.Sprintf("%s: %s", StepDeleteFiles, "denied"))
}
