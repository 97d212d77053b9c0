package docker

import (
	"context"
	"errors"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

// Common test errors.
var (
	errMockPing   = errors.New("mock: ping failed")
	errMockList   = errors.New("mock: container list failed")
	errMockRemove = errors.New("mock: image remove failed")
)

// notFoundError satisfies the SDK's not-found error check.
type notFoundError struct{ ref string }

func (e notFoundError) Error() string { return "No such image: " + e.ref }
func (e notFoundError) NotFound()     {}

// MockDockerAPI is a mock implementation of DockerAPI for testing.
type MockDockerAPI struct {
	// Function overrides for each method
	PingFunc          func(ctx context.Context) (types.Ping, error)
	ContainerListFunc func(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ImageRemoveFunc   func(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
	CloseFunc         func() error

	// Call tracking
	PingCalls          int
	ContainerListCalls int
	ImageRemoveCalls   int
	CloseCalls         int
}

// NewMockDockerAPI creates a new mock with default no-op implementations.
func NewMockDockerAPI() *MockDockerAPI {
	return &MockDockerAPI{}
}

// Ping implements DockerAPI.
func (m *MockDockerAPI) Ping(ctx context.Context) (types.Ping, error) {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return types.Ping{APIVersion: "1.45"}, nil
}

// ContainerList implements DockerAPI.
func (m *MockDockerAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	m.ContainerListCalls++
	if m.ContainerListFunc != nil {
		return m.ContainerListFunc(ctx, options)
	}
	return []container.Summary{}, nil
}

// ImageRemove implements DockerAPI.
func (m *MockDockerAPI) ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error) {
	m.ImageRemoveCalls++
	if m.ImageRemoveFunc != nil {
		return m.ImageRemoveFunc(ctx, imageID, options)
	}
	return []image.DeleteResponse{{Untagged: imageID}}, nil
}

// Close implements DockerAPI.
func (m *MockDockerAPI) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Ensure MockDockerAPI implements DockerAPI.
var _ DockerAPI = (*MockDockerAPI)(nil)
