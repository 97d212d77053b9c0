package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerAPI defines the interface for Docker client operations.
// This interface enables mocking for unit tests without requiring a running Docker daemon.
type DockerAPI interface {
	// Ping tests the connection to the Docker daemon.
	Ping(ctx context.Context) (types.Ping, error)

	// ContainerList returns a list of containers.
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)

	// ImageRemove removes an image.
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)

	// Close closes the client connection.
	Close() error
}

// Verify that the Docker SDK client implements our interface.
var _ DockerAPI = (*client.Client)(nil)
