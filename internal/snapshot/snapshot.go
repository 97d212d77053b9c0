// Package snapshot keeps point-in-time copies of the topology state files
// (the registry and the compose document) so an operation can be rolled back.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/punch/internal/fileutil"
)

const (
	// SnapshotPrefix is the prefix for snapshot directory names.
	SnapshotPrefix = "snapshot-"
	// BackupPrefix is the prefix for the automatic backup taken before a restore.
	BackupPrefix = "pre-rollback-"
	// DateFormatPrecise includes nanoseconds to prevent same-second collisions.
	DateFormatPrecise = "20060102-150405.000000000"
	// MaxSnapshots is the maximum number of snapshots to retain.
	MaxSnapshots = 20
	// MinFreeDiskBytes is the minimum free disk space required (10MB).
	MinFreeDiskBytes = 10 * 1024 * 1024

	metaFile = "snapshot.yaml"
)

// ErrNotFound is returned when a named snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotInfo holds metadata about a snapshot.
type SnapshotInfo struct {
	Name    string
	Path    string
	Label   string
	Created time.Time
	// Files are the project-relative files the snapshot covers.
	Files []string
}

type meta struct {
	Label   string    `yaml:"label"`
	Created time.Time `yaml:"created"`
	// Present files were copied; absent files did not exist and are
	// deleted on restore.
	Present []string `yaml:"present"`
	Absent  []string `yaml:"absent,omitempty"`
}

// Store manages snapshots of files under root, kept in stateDir/snapshots.
type Store struct {
	root     string
	stateDir string
	files    []string
}

// New creates a snapshot store for files, given relative to root.
func New(root, stateDir string, files ...string) *Store {
	return &Store{root: root, stateDir: stateDir, files: files}
}

func (s *Store) dir() string {
	return filepath.Join(s.stateDir, "snapshots")
}

// Create snapshots the tracked files under a new name and returns it.
func (s *Store) Create(label string) (string, error) {
	return s.create(SnapshotPrefix, label)
}

func (s *Store) create(prefix, label string) (string, error) {
	if err := os.MkdirAll(s.dir(), 0755); err != nil {
		return "", fmt.Errorf("create snapshots directory: %w", err)
	}

	var size int64
	for _, rel := range s.files {
		if info, err := os.Stat(filepath.Join(s.root, rel)); err == nil {
			size += info.Size()
		}
	}
	if err := checkDiskSpace(s.dir(), size+MinFreeDiskBytes); err != nil {
		return "", fmt.Errorf("insufficient disk space for snapshot: %w", err)
	}

	now := time.Now()
	name := prefix + now.Format(DateFormatPrecise)
	path := filepath.Join(s.dir(), name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	m := meta{Label: label, Created: now}
	for _, rel := range s.files {
		err := fileutil.CopyFile(filepath.Join(s.root, rel), filepath.Join(path, rel))
		switch {
		case err == nil:
			m.Present = append(m.Present, rel)
		case errors.Is(err, fs.ErrNotExist):
			m.Absent = append(m.Absent, rel)
		default:
			os.RemoveAll(path)
			return "", fmt.Errorf("copy %s to snapshot: %w", rel, err)
		}
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		os.RemoveAll(path)
		return "", fmt.Errorf("encode snapshot metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(path, metaFile), data, 0644); err != nil {
		os.RemoveAll(path)
		return "", fmt.Errorf("write snapshot metadata: %w", err)
	}

	if err := s.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old snapshots: %v\n", err)
	}

	return name, nil
}

// List returns available snapshots sorted by date (newest first).
func (s *Store) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []SnapshotInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), SnapshotPrefix) && !strings.HasPrefix(entry.Name(), BackupPrefix) {
			continue
		}

		path := filepath.Join(s.dir(), entry.Name())
		m, err := readMeta(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot read snapshot %s: %v\n", entry.Name(), err)
			continue
		}

		snapshots = append(snapshots, SnapshotInfo{
			Name:    entry.Name(),
			Path:    path,
			Label:   m.Label,
			Created: m.Created,
			Files:   m.Present,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Latest returns the newest snapshot, or ErrNotFound when there is none.
func (s *Store) Latest() (*SnapshotInfo, error) {
	snapshots, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, SnapshotPrefix) {
			return &snap, nil
		}
	}
	return nil, ErrNotFound
}

// ReadFile returns a file's content as captured in a snapshot.
func (s *Store) ReadFile(name, rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir(), name, rel))
}

// Restore puts the tracked files back to their state in the named snapshot.
// The current files are backed up first. Each file is replaced atomically.
func (s *Store) Restore(name string) error {
	path := filepath.Join(s.dir(), name)
	m, err := readMeta(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", name, err)
	}

	if _, err := s.create(BackupPrefix, "before rollback to "+name); err != nil {
		return fmt.Errorf("create pre-rollback backup: %w", err)
	}

	for _, rel := range m.Present {
		src := filepath.Join(path, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read %s from snapshot: %w", rel, err)
		}
		dst := filepath.Join(s.root, rel)
		if err := fileutil.WriteFileAtomic(dst, data, 0644); err != nil {
			return fmt.Errorf("restore %s: %w", rel, err)
		}
	}

	for _, rel := range m.Absent {
		// Move aside first so a failed removal leaves a recoverable file.
		dst := filepath.Join(s.root, rel)
		aside := dst + ".restore-old-" + uuid.New().String()[:8]
		if err := os.Rename(dst, aside); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("remove %s: %w", rel, err)
		}
		os.Remove(aside)
	}

	return nil
}

// Cleanup removes snapshots beyond the retention limit.
// Continues deleting even if individual removals fail, returning a summary of all errors.
func (s *Store) Cleanup() error {
	snapshots, err := s.List()
	if err != nil {
		return err
	}

	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []string
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := removeWithRetry(snap.Path, 3); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", snap.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d snapshot(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

func readMeta(path string) (*meta, error) {
	data, err := os.ReadFile(filepath.Join(path, metaFile))
	if err != nil {
		return nil, err
	}
	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", metaFile, err)
	}
	return &m, nil
}

// checkDiskSpace checks if there's enough disk space available.
func checkDiskSpace(dir string, requiredBytes int64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < requiredBytes {
		return fmt.Errorf("need %d bytes, only %d available", requiredBytes, available)
	}
	return nil
}

// removeWithRetry attempts to remove a directory with retries for transient failures.
func removeWithRetry(path string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(time.Duration(10*(1<<i)) * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
