// Package registry holds the persisted topology: which services exist and
// on which port, and which components are deployed.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultBasePort is the first port handed out when no base port is configured.
const DefaultBasePort = 3000

var (
	// ErrCorruptState indicates the stored registry cannot be parsed or
	// violates its invariants.
	ErrCorruptState = errors.New("corrupt registry state")

	// ErrPersistence indicates the registry could not be written.
	ErrPersistence = errors.New("registry persistence failed")

	// ErrServiceExists indicates a service name is already registered.
	ErrServiceExists = errors.New("service already registered")

	// ErrPortInUse indicates a port is already assigned to another service.
	ErrPortInUse = errors.New("port already assigned")

	// ErrPortsExhausted indicates no port is left above the base port.
	ErrPortsExhausted = errors.New("no free ports left")
)

// Registry is the topology state.
type Registry struct {
	BasePort   int             `json:"basePort"`
	Services   map[string]int  `json:"services"`
	Components map[string]bool `json:"components"`
}

// New returns an empty registry starting at basePort.
func New(basePort int) *Registry {
	return &Registry{
		BasePort:   basePort,
		Services:   make(map[string]int),
		Components: make(map[string]bool),
	}
}

// ServiceEntry pairs a service name with its port.
type ServiceEntry struct {
	Name string
	Port int
}

// Validate checks the registry invariants.
func (r *Registry) Validate() error {
	if r.BasePort <= 0 || r.BasePort > maxPort {
		return fmt.Errorf("base port %d out of range", r.BasePort)
	}

	owners := make(map[int]string, len(r.Services))
	for name, port := range r.Services {
		if name == "" {
			return errors.New("service with empty name")
		}
		if port < r.BasePort || port > maxPort {
			return fmt.Errorf("service %s: port %d outside %d-%d", name, port, r.BasePort, maxPort)
		}
		if other, taken := owners[port]; taken {
			return fmt.Errorf("services %s and %s share port %d", other, name, port)
		}
		owners[port] = name
	}

	return nil
}

// HasService reports whether name is a registered service.
func (r *Registry) HasService(name string) bool {
	_, ok := r.Services[name]
	return ok
}

// Port returns the port assigned to a service.
func (r *Registry) Port(name string) (int, bool) {
	port, ok := r.Services[name]
	return port, ok
}

// AddService registers a service on port.
func (r *Registry) AddService(name string, port int) error {
	if r.HasService(name) {
		return fmt.Errorf("%w: %s", ErrServiceExists, name)
	}
	if owner, taken := r.portOwner(port); taken {
		return fmt.Errorf("%w: %d is used by %s", ErrPortInUse, port, owner)
	}
	if port < r.BasePort || port > maxPort {
		return fmt.Errorf("port %d outside %d-%d", port, r.BasePort, maxPort)
	}
	r.Services[name] = port
	return nil
}

// RemoveService drops a service. It reports whether the service existed.
func (r *Registry) RemoveService(name string) bool {
	if !r.HasService(name) {
		return false
	}
	delete(r.Services, name)
	return true
}

// HasComponent reports whether a component is marked deployed.
func (r *Registry) HasComponent(name string) bool {
	return r.Components[name]
}

// SetComponent marks a component as deployed.
func (r *Registry) SetComponent(name string) {
	r.Components[name] = true
}

// RemoveComponent drops a component. It reports whether it was deployed.
func (r *Registry) RemoveComponent(name string) bool {
	if !r.HasComponent(name) {
		return false
	}
	delete(r.Components, name)
	return true
}

// ServiceEntries returns services ordered by port.
func (r *Registry) ServiceEntries() []ServiceEntry {
	entries := make([]ServiceEntry, 0, len(r.Services))
	for name, port := range r.Services {
		entries = append(entries, ServiceEntry{Name: name, Port: port})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Port == entries[j].Port {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Port < entries[j].Port
	})
	return entries
}

// DeployedComponents returns the deployed component names, sorted.
func (r *Registry) DeployedComponents() []string {
	var names []string
	for name, deployed := range r.Components {
		if deployed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) portOwner(port int) (string, bool) {
	for name, p := range r.Services {
		if p == port {
			return name, true
		}
	}
	return "", false
}
