// Package lock provides advisory file locks that serialize punch operations
// touching the shared registry and compose document.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("lock held by another operation")

// Lock represents a file-based lock.
type Lock struct {
	path string
	file *os.File
}

// New creates a lock for the given operation under stateDir/locks.
func New(stateDir, operation string) *Lock {
	return &Lock{
		path: filepath.Join(stateDir, "locks", operation+".lock"),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		l.file = nil
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("%w: another %s operation is already running", ErrHeld, l.operation())
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID for whoever inspects a stuck lock.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

func (l *Lock) operation() string {
	return strings.TrimSuffix(filepath.Base(l.path), ".lock")
}

// WithLock executes fn while holding the lock.
func WithLock(stateDir, operation string, fn func() error) error {
	lock := New(stateDir, operation)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
