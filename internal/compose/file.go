package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/punch/internal/fileutil"
)

// ErrInvalidDocument indicates a mutation would leave the file unparseable.
var ErrInvalidDocument = errors.New("compose document is not valid YAML")

// ReadFile parses the compose file at path. A missing file is an empty document.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parse(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	return Parse(string(data)), nil
}

// MutateFile applies fn to the compose file and writes the result back
// atomically. Nothing is written when fn fails or the result is not valid
// YAML.
func MutateFile(path string, fn func(*Document) error) error {
	doc, err := ReadFile(path)
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	out := doc.String()
	var check map[string]any
	if err := yaml.Unmarshal([]byte(out), &check); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	perm := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := fileutil.WriteFileAtomic(path, []byte(out), perm); err != nil {
		return fmt.Errorf("write compose file: %w", err)
	}
	return nil
}
