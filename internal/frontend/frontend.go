// Package frontend generates redux boilerplate (a slice and its selectors)
// for a service under the project's frontend/ directory.
package frontend

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/cameronsjo/punch/internal/fileutil"
	"github.com/cameronsjo/punch/internal/manifest"
)

// Dir is the frontend directory under the project root.
const Dir = "frontend"

// ErrExists indicates a redux file for the service is already present.
var ErrExists = errors.New("frontend file already exists")

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("frontend").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Files returns the paths Generate writes for name, relative to root.
func Files(name string) []string {
	ident := identifier(name)
	return []string{
		filepath.Join(Dir, "slices", ident+"Slice.js"),
		filepath.Join(Dir, "selectors", ident+"Selectors.js"),
	}
}

// identifier mirrors the camelcase | untitle pipeline in the templates.
func identifier(name string) string {
	funcs := sprig.TxtFuncMap()
	camel := funcs["camelcase"].(func(string) string)
	untitle := funcs["untitle"].(func(string) string)
	return untitle(camel(name))
}

// Generate writes the slice and selector files for the service. Existing
// files are never overwritten. On failure nothing written by this call is
// left behind.
func Generate(root, name string) ([]string, error) {
	if err := manifest.ValidateName(name); err != nil {
		return nil, err
	}

	paths := Files(name)
	for _, rel := range paths {
		if fileutil.Exists(filepath.Join(root, rel)) {
			return nil, fmt.Errorf("%w: %s", ErrExists, rel)
		}
	}

	sources := []string{"slice.js.tmpl", "selectors.js.tmpl"}
	var written []string
	for i, rel := range paths {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, sources[i], struct{ Name string }{name}); err != nil {
			Remove(root, written)
			return nil, fmt.Errorf("render %s: %w", sources[i], err)
		}
		path := filepath.Join(root, rel)
		if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
			Remove(root, written)
			return nil, fmt.Errorf("write %s: %w", rel, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Remove deletes generated files. Missing files are ignored.
func Remove(root string, paths []string) error {
	var errs []error
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
