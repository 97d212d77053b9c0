package deploy

import (
	"fmt"
	"strings"
)

// ExecutorError reports a deployment step whose command failed to start or
// exited non-zero.
type ExecutorError struct {
	Step     string
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExecutorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Command, e.Err)
	}

	msg := fmt.Sprintf("%s: %s exited with status %d", e.Step, e.Command, e.ExitCode)
	if tail := lastLines(e.Output, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
