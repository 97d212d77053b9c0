// Package preflight provides pre-flight validation for required binaries.
package preflight

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMissingBinary indicates a binary needed by an operation is not in PATH.
var ErrMissingBinary = errors.New("required binary not found")

// BinaryCheck represents a binary and its purpose.
type BinaryCheck struct {
	Name        string
	Required    bool   // false = warning only
	Purpose     string
	InstallHint string // e.g., "brew install kubectl" or "https://..."
}

// binaries punch shells out to. docker and kubectl are only needed for
// deploying and tearing down; git and node are conveniences.
var binaries = []BinaryCheck{
	{
		Name:        "docker",
		Required:    true,
		Purpose:     "build images and run docker compose",
		InstallHint: "Install Docker: https://docs.docker.com/get-docker/",
	},
	{
		Name:        "kubectl",
		Required:    true,
		Purpose:     "apply and delete cluster manifests",
		InstallHint: "Install kubectl: https://kubernetes.io/docs/tasks/tools/",
	},
	{
		Name:        "git",
		Purpose:     "work with repositories created by --git",
		InstallHint: "Install git: https://git-scm.com/downloads",
	},
	{
		Name:        "node",
		Purpose:     "run generated services locally",
		InstallHint: "Install Node.js: https://nodejs.org/",
	},
}

// LookPath resolves binaries. Tests replace it.
var LookPath = exec.LookPath

// Result is the outcome of checking one binary.
type Result struct {
	BinaryCheck
	Path  string
	Found bool
}

// Check looks up every known binary.
func Check() []Result {
	results := make([]Result, 0, len(binaries))
	for _, bin := range binaries {
		path, err := LookPath(bin.Name)
		results = append(results, Result{BinaryCheck: bin, Path: path, Found: err == nil})
	}
	return results
}

// CheckAll performs all pre-flight checks and returns warnings and errors.
// Errors are for missing required binaries, warnings are for missing optional binaries.
func CheckAll() (warnings []string, errs []string) {
	for _, r := range Check() {
		if r.Found {
			continue
		}
		msg := r.Name + ": " + r.InstallHint
		if r.Required {
			errs = append(errs, msg)
		} else {
			warnings = append(warnings, msg)
		}
	}
	return warnings, errs
}

// Require returns ErrMissingBinary naming every binary in names that is
// not in PATH.
func Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := LookPath(name); err != nil {
			hint := ""
			if bin, ok := lookup(name); ok {
				hint = " (" + bin.InstallHint + ")"
			}
			missing = append(missing, name+hint)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingBinary, strings.Join(missing, ", "))
	}
	return nil
}

// IsBinaryAvailable checks if a specific binary is available in PATH.
func IsBinaryAvailable(name string) bool {
	_, err := LookPath(name)
	return err == nil
}

// GetAllBinaries returns all configured binaries.
func GetAllBinaries() []BinaryCheck {
	return append([]BinaryCheck(nil), binaries...)
}

func lookup(name string) (BinaryCheck, bool) {
	for _, bin := range binaries {
		if bin.Name == name {
			return bin, true
		}
	}
	return BinaryCheck{}, false
}
