package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/punch/internal/config"
	"github.com/cameronsjo/punch/internal/deploy"
	"github.com/cameronsjo/punch/internal/lifecycle"
	"github.com/cameronsjo/punch/internal/preflight"
)

// fakeDeployer records the steps it is asked to run and fails those in fail.
type fakeDeployer struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDeployer) record(step string) error {
	f.calls = append(f.calls, step)
	return f.fail[step]
}

func (f *fakeDeployer) BuildImage(context.Context, string, string) error {
	return f.record(deploy.StepBuild)
}

func (f *fakeDeployer) ComposeUp(context.Context, ...string) error {
	return f.record(deploy.StepComposeUp)
}

func (f *fakeDeployer) ClusterApply(context.Context, ...string) error {
	return f.record(deploy.StepClusterApply)
}

func (f *fakeDeployer) ClusterDelete(context.Context, ...string) error {
	return f.record(deploy.StepClusterDelete)
}

func (f *fakeDeployer) RemoveImage(context.Context, string) error {
	return f.record(deploy.StepImageRemove)
}

// resetFlags restores every flag variable to its default. Cobra keeps parsed
// values on the package-level variables between executions.
func resetFlags() {
	verbose, noColor = false, false
	initBasePort = 0
	createDeploy, createRedux, createGit = false, false, false
	createAuthor, createLicense = "", ""
	createExclude = nil
	listStatus = false
	removeLocal = false
	checkOnly = false

	cmds := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range cmds {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				f.Value.Set("false")
				f.Changed = false
			}
		}
	}
}

// useFakeDeployer swaps in a fakeDeployer for the duration of the test.
func useFakeDeployer(t *testing.T) *fakeDeployer {
	t.Helper()
	fake := &fakeDeployer{fail: map[string]error{}}
	orig := newDeployer
	t.Cleanup(func() { newDeployer = orig })
	newDeployer = func(*config.Config, *slog.Logger) (lifecycle.Deployer, func()) {
		return fake, func() {}
	}
	return fake
}

// stubBinaries makes preflight see only the given binaries.
func stubBinaries(t *testing.T, available ...string) {
	t.Helper()
	orig := preflight.LookPath
	t.Cleanup(func() { preflight.LookPath = orig })
	set := map[string]bool{}
	for _, name := range available {
		set[name] = true
	}
	preflight.LookPath = func(name string) (string, error) {
		if set[name] {
			return "/usr/local/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
}

// newProject initializes a punch project in a temp dir and makes it the
// working directory.
func newProject(t *testing.T) (string, *fakeDeployer) {
	t.Helper()
	fake := useFakeDeployer(t)
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := executeCmd(t, "init")
	require.NoError(t, err)
	return dir, fake
}

// executeCmd executes the root command with the given args and returns
// everything written to stdout, cobra's output and color.Output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	oldStdout, oldOutput, oldNoColor := os.Stdout, color.Output, color.NoColor
	os.Stdout, color.Output = w, w
	defer func() {
		os.Stdout, color.Output, color.NoColor = oldStdout, oldOutput, oldNoColor
	}()

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, r)
		close(done)
	}()

	// Cobra binds its default completion command to the writer of the first
	// execution. Drop it so it is rebuilt around this one.
	for _, c := range rootCmd.Commands() {
		if c.Name() == "completion" {
			rootCmd.RemoveCommand(c)
		}
	}

	rootCmd.SetArgs(args)
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)
	rootCmd.SetContext(context.Background())
	execErr := rootCmd.Execute()

	w.Close()
	<-done
	r.Close()
	return buf.String(), execErr
}
