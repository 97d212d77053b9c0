package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/docker/go-connections/nat"
)

// ErrInvalidDescriptor indicates a descriptor is missing or has a malformed field.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Names end up as directory names, image names, compose keys and cluster
// object names, so they follow the DNS label rules.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

const maxNameLength = 63

// ValidateName checks a service or component name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name %q longer than %d characters", ErrInvalidDescriptor, name, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: name %q must be lowercase letters, digits and dashes", ErrInvalidDescriptor, name)
	}
	return nil
}

// containerPort validates port and returns it in nat form, e.g. "3001/tcp".
func containerPort(port int) (nat.Port, error) {
	if port <= 0 {
		return "", fmt.Errorf("%w: port %d must be positive", ErrInvalidDescriptor, port)
	}
	p, err := nat.NewPort("tcp", strconv.Itoa(port))
	if err != nil {
		return "", fmt.Errorf("%w: port %d: %w", ErrInvalidDescriptor, port, err)
	}
	return p, nil
}

// Validate checks the descriptor's required fields.
func (d ServiceDescriptor) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if _, err := containerPort(d.Port); err != nil {
		return err
	}
	return nil
}

// Validate checks that the descriptor names a known component kind.
func (c ComponentDescriptor) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: component name is required", ErrInvalidDescriptor)
	}
	if !IsComponentKind(c.Name) {
		return fmt.Errorf("%w: unknown component %q (known: %v)", ErrInvalidDescriptor, c.Name, ComponentNames())
	}
	return nil
}
