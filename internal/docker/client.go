package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// ErrImageNotFound is returned when the image to remove does not exist.
var ErrImageNotFound = errors.New("image not found")

// Client wraps the Docker SDK client.
type Client struct {
	api DockerAPI
}

// NewClient creates a new Docker client connection.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	return &Client{api: cli}, nil
}

// NewClientWithAPI creates a new Docker client with a custom API implementation.
// This is primarily used for testing with mock implementations.
func NewClientWithAPI(api DockerAPI) *Client {
	return &Client{api: api}
}

// Ping tests the connection to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}

	return nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	if c.api != nil {
		return c.api.Close()
	}
	return nil
}

// RemoveImage removes an image by reference, e.g. "orders:latest".
// It returns the number of deleted and untagged layers.
func (c *Client) RemoveImage(ctx context.Context, ref string) (int, error) {
	resp, err := c.api.ImageRemove(ctx, ref, image.RemoveOptions{PruneChildren: true})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
		}
		return 0, fmt.Errorf("remove image %s: %w", ref, err)
	}
	return len(resp), nil
}
