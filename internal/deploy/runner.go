// Package deploy runs the external build, start, apply and delete commands
// and reports each as a typed result.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Command is an external command invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a command that was started.
type Result struct {
	Command  Command
	ExitCode int
	Output   string
	Duration time.Duration
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external commands. A non-zero exit is reported in the Result,
// not as an error; the error is reserved for commands that could not be
// started or were cancelled.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec, capturing combined output.
type ExecRunner struct {
	// Stdout receives output as it is produced when set.
	Stdout io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stdout != nil {
		out = io.MultiWriter(&buf, r.Stdout)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Command:  c,
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		result.ExitCode = -1
		return result, fmt.Errorf("%s: %w", c, ctx.Err())
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("start %s: %w", c.Name, err)
	}
}
