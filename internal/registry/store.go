package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cameronsjo/punch/internal/fileutil"
)

// Store loads and persists a registry as a JSON file.
type Store struct {
	path     string
	basePort int
}

// NewStore creates a store for the registry file at path. basePort seeds
// the registry on first run; non-positive values fall back to DefaultBasePort.
func NewStore(path string, basePort int) *Store {
	if basePort <= 0 {
		basePort = DefaultBasePort
	}
	return &Store{path: path, basePort: basePort}
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the registry. A missing file yields defaults, which are
// persisted before returning.
func (s *Store) Load() (*Registry, error) {
	reg, found, err := s.read()
	if err != nil {
		return nil, err
	}
	if !found {
		if err := s.Save(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Read reads the registry without writing. A missing file yields defaults.
func (s *Store) Read() (*Registry, error) {
	reg, _, err := s.read()
	return reg, err
}

func (s *Store) read() (*Registry, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(s.basePort), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %w", ErrCorruptState, s.path, err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, false, fmt.Errorf("%w: parse %s: %w", ErrCorruptState, s.path, err)
	}
	if reg.Services == nil {
		reg.Services = make(map[string]int)
	}
	if reg.Components == nil {
		reg.Components = make(map[string]bool)
	}
	if err := reg.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrCorruptState, s.path, err)
	}

	return &reg, true, nil
}

// Save overwrites the stored registry atomically.
func (s *Store) Save(reg *Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	data = append(data, '\n')

	if err := fileutil.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, s.path, err)
	}
	return nil
}
