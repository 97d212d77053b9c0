package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// Labels compose sets on the containers it creates.
const (
	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"
)

// ServiceState summarizes the containers backing one compose service.
type ServiceState struct {
	Service    string
	Containers int
	Running    int
	// State is "running" when every container runs, "partial" when only
	// some do, otherwise the state of the first container.
	State string
	Ports []string
}

// ServiceStates returns the state of each compose service in project,
// keyed by service name. An empty project matches every compose project.
func (c *Client) ServiceStates(ctx context.Context, project string) (map[string]ServiceState, error) {
	args := filters.NewArgs(filters.Arg("label", composeServiceLabel))
	if project != "" {
		args.Add("label", composeProjectLabel+"="+project)
	}

	containers, err := c.api.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	states := make(map[string]ServiceState)
	for _, ctr := range containers {
		name := ctr.Labels[composeServiceLabel]
		if name == "" {
			continue
		}

		s := states[name]
		s.Service = name
		s.Containers++
		if ctr.State == "running" {
			s.Running++
		}
		if s.State == "" {
			s.State = string(ctr.State)
		}
		for _, p := range ctr.Ports {
			if p.PublicPort > 0 {
				s.Ports = append(s.Ports, fmt.Sprintf("%d:%d/%s", p.PublicPort, p.PrivatePort, p.Type))
			}
		}
		states[name] = s
	}

	for name, s := range states {
		switch {
		case s.Running == s.Containers:
			s.State = "running"
		case s.Running > 0:
			s.State = "partial"
		default:
			s.State = strings.ToLower(s.State)
		}
		states[name] = s
	}

	return states, nil
}
