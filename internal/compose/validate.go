package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// Report summarizes a compose file that loaded successfully.
type Report struct {
	Services []string
	// PortConflicts maps a published host port to the services publishing it.
	PortConflicts map[string][]string
}

// Validate loads the compose file with the compose-spec loader and reports
// its services and any host port published by more than one service.
func Validate(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var dict map[string]any
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if dict == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		WorkingDir: filepath.Dir(abs),
		ConfigFiles: []types.ConfigFile{
			{Filename: abs, Content: data, Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(ProjectName(abs), false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, fmt.Errorf("load compose project: %w", err)
	}

	report := &Report{PortConflicts: make(map[string][]string)}
	published := make(map[string][]string)
	for name, svc := range project.Services {
		report.Services = append(report.Services, name)
		for _, p := range svc.Ports {
			if p.Published == "" {
				continue
			}
			published[p.Published] = append(published[p.Published], name)
		}
	}
	sort.Strings(report.Services)

	for port, owners := range published {
		if len(owners) > 1 {
			sort.Strings(owners)
			report.PortConflicts[port] = owners
		}
	}

	return report, nil
}

// ProjectName is the compose project name docker compose derives for path.
func ProjectName(path string) string {
	name := loader.NormalizeProjectName(filepath.Base(filepath.Dir(path)))
	if name == "" {
		return "punch"
	}
	return name
}
