// Package scaffold instantiates a service project from a template tree.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cameronsjo/punch/internal/fileutil"
)

//go:embed all:template/service-template
var builtin embed.FS

const (
	builtinRoot = "template/service-template"

	// DefaultName is the root directory name of the built-in template.
	DefaultName = "service-template"

	// DefaultPlaceholder is the service name token used throughout the template.
	DefaultPlaceholder = "service"

	// DefaultPort is the port number the template listens on.
	DefaultPort = 3000

	// DefaultEntryPoint is the file the container runs.
	DefaultEntryPoint = "index.js"
)

// DefaultRenameFiles lists the template files carrying the placeholder in
// their base name. Paths are slash separated, relative to the template root.
var DefaultRenameFiles = []string{
	"models/serviceModel.js",
	"services/serviceService.js",
	"controllers/serviceController.js",
	"routes/serviceRoutes.js",
}

var (
	// ErrTemplateIntegrity indicates the template lacks a required file.
	ErrTemplateIntegrity = errors.New("template integrity check failed")

	// ErrDestinationExists indicates the destination directory is already present.
	ErrDestinationExists = errors.New("destination already exists")
)

// ScaffoldError wraps a filesystem failure during instantiation.
type ScaffoldError struct {
	Op   string
	Path string
	Err  error
}

func (e *ScaffoldError) Error() string {
	return fmt.Sprintf("scaffold %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScaffoldError) Unwrap() error {
	return e.Err
}

// Template is a read-only project tree plus its token vocabulary.
type Template struct {
	FS          fs.FS
	Name        string
	Placeholder string
	DefaultPort int
	EntryPoint  string
	RenameFiles []string
}

// DefaultTemplate returns the built-in service template.
func DefaultTemplate() *Template {
	sub, err := fs.Sub(builtin, builtinRoot)
	if err != nil {
		panic(fmt.Sprintf("embedded template: %v", err))
	}
	return &Template{
		FS:          sub,
		Name:        DefaultName,
		Placeholder: DefaultPlaceholder,
		DefaultPort: DefaultPort,
		EntryPoint:  DefaultEntryPoint,
		RenameFiles: DefaultRenameFiles,
	}
}

// FromDir loads a template from disk. It uses the built-in token vocabulary
// and the directory's base name as the template name.
func FromDir(dir string) (*Template, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateIntegrity, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrTemplateIntegrity, dir)
	}

	tmpl := DefaultTemplate()
	tmpl.FS = os.DirFS(dir)
	tmpl.Name = filepath.Base(filepath.Clean(dir))
	return tmpl, nil
}

// Tokens are the concrete values substituted into the template.
type Tokens struct {
	Name string
	Port int
}

// Result describes a completed instantiation.
type Result struct {
	Dir string
	// Renamed maps template-relative paths to their new relative paths.
	Renamed map[string]string
	// Rewritten lists relative paths whose content was substituted.
	Rewritten []string
}

// Check verifies every file the instantiation touches exists in the template.
func (t *Template) Check() error {
	required := append([]string{t.EntryPoint}, t.RenameFiles...)
	for _, rel := range required {
		info, err := fs.Stat(t.FS, rel)
		if err != nil {
			return fmt.Errorf("%w: %s: missing %s", ErrTemplateIntegrity, t.Name, rel)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s: %s is a directory", ErrTemplateIntegrity, t.Name, rel)
		}
	}
	return nil
}

// Instantiate copies the template to dest, renames placeholder files and
// substitutes tokens. The tree is assembled in a staging directory beside
// dest and moved into place only when every step succeeded, so dest either
// does not exist or is complete.
func Instantiate(t *Template, dest string, tokens Tokens) (*Result, error) {
	if tokens.Name == "" {
		return nil, errors.New("scaffold: empty service name")
	}
	if fileutil.Exists(dest) {
		return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	}
	if err := t.Check(); err != nil {
		return nil, err
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, &ScaffoldError{Op: "mkdir", Path: parent, Err: err}
	}

	staging := filepath.Join(parent, fmt.Sprintf(".%s.scaffold-%s", filepath.Base(dest), uuid.New().String()[:8]))
	result, err := t.build(staging, tokens)
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return nil, &ScaffoldError{Op: "rename", Path: dest, Err: err}
	}

	result.Dir = dest
	return result, nil
}

func (t *Template) build(staging string, tokens Tokens) (*Result, error) {
	if err := fileutil.CopyFS(t.FS, staging); err != nil {
		return nil, &ScaffoldError{Op: "copy", Path: staging, Err: err}
	}

	result := &Result{Renamed: make(map[string]string, len(t.RenameFiles))}

	targets := []string{t.EntryPoint}
	for _, rel := range t.RenameFiles {
		renamed := renamePath(rel, t.Placeholder, tokens.Name)
		if renamed != rel {
			from := filepath.Join(staging, filepath.FromSlash(rel))
			to := filepath.Join(staging, filepath.FromSlash(renamed))
			if err := os.Rename(from, to); err != nil {
				return nil, &ScaffoldError{Op: "rename", Path: from, Err: err}
			}
		}
		result.Renamed[rel] = renamed
		targets = append(targets, renamed)
	}

	replacer := t.replacer(tokens)
	for _, rel := range targets {
		p := filepath.Join(staging, filepath.FromSlash(rel))
		if err := rewrite(p, replacer); err != nil {
			return nil, err
		}
		result.Rewritten = append(result.Rewritten, rel)
	}

	return result, nil
}

// renamePath replaces the first placeholder occurrence in the base name only.
func renamePath(rel, placeholder, name string) string {
	dir, base := path.Split(rel)
	return dir + strings.Replace(base, placeholder, name, 1)
}

// replacer substitutes, in priority order: template directory references
// that contain the placeholder (kept as is so relative requires still
// resolve), the template name, the placeholder, and the default port.
//
// The placeholder match is broad: any identifier containing it is rewritten
// (serviceService becomes ordersService). Only lowercase occurrences match.
// The name is inserted verbatim, so a hyphenated name such as user-service
// yields identifiers like user-serviceService that are not valid JavaScript.
func (t *Template) replacer(tokens Tokens) *strings.Replacer {
	var pairs []string
	seen := make(map[string]bool)
	for _, rel := range t.RenameFiles {
		for _, seg := range strings.Split(path.Dir(rel), "/") {
			if seg == "." || !strings.Contains(seg, t.Placeholder) {
				continue
			}
			ref := seg + "/"
			if !seen[ref] {
				seen[ref] = true
				pairs = append(pairs, ref, ref)
			}
		}
	}

	port := strconv.Itoa(tokens.Port)
	pairs = append(pairs,
		t.Name, tokens.Name,
		t.Placeholder, tokens.Name,
		strconv.Itoa(t.DefaultPort), port,
	)
	return strings.NewReplacer(pairs...)
}

func rewrite(p string, replacer *strings.Replacer) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return &ScaffoldError{Op: "read", Path: p, Err: err}
	}

	info, err := os.Stat(p)
	if err != nil {
		return &ScaffoldError{Op: "stat", Path: p, Err: err}
	}

	out := replacer.Replace(string(data))
	if err := fileutil.WriteFileAtomic(p, []byte(out), info.Mode().Perm()); err != nil {
		return &ScaffoldError{Op: "write", Path: p, Err: err}
	}
	return nil
}
