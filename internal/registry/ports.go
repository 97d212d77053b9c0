package registry

import "fmt"

const maxPort = 65535

// CountPort is the count-based candidate: basePort plus the number of
// registered services. Removals leave gaps this formula does not see.
func CountPort(r *Registry) int {
	return r.BasePort + len(r.Services)
}

// IsStale reports whether the count-based candidate is already assigned.
func IsStale(r *Registry) bool {
	_, taken := r.portOwner(CountPort(r))
	return taken
}

// NextPort returns the port for the next service. The count-based candidate
// is used when free; otherwise the lowest free port at or above the base
// port is reused.
func NextPort(r *Registry) (int, error) {
	candidate := CountPort(r)
	if !IsStale(r) && candidate <= maxPort {
		return candidate, nil
	}

	taken := make(map[int]bool, len(r.Services))
	for _, port := range r.Services {
		taken[port] = true
	}
	for port := r.BasePort; port <= maxPort; port++ {
		if !taken[port] {
			return port, nil
		}
	}

	return 0, fmt.Errorf("%w: base port %d", ErrPortsExhausted, r.BasePort)
}
