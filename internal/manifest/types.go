package manifest

import "sort"

// Defaults applied to descriptors that leave fields empty.
const (
	DefaultAuthor     = "Unknown"
	DefaultLicense    = "ISC"
	DefaultEntryPoint = "index.js"
)

// ServiceDescriptor describes a service being created. It only lives for
// the duration of one operation.
type ServiceDescriptor struct {
	Name       string
	Port       int
	Author     string
	License    string
	EntryPoint string
}

func (d ServiceDescriptor) entryPoint() string {
	if d.EntryPoint == "" {
		return DefaultEntryPoint
	}
	return d.EntryPoint
}

// ComponentDescriptor describes a supporting component and whether it is deployed.
type ComponentDescriptor struct {
	Name     string
	Deployed bool
}

// ComponentKind is one of the known supporting components.
type ComponentKind struct {
	Name string

	// Port is the port the component listens on inside its container.
	Port int

	// Published components map their port to the host and depend on the
	// infrastructure services.
	Published bool
}

// Components is the closed set of known component kinds.
var Components = map[string]ComponentKind{
	"gateway":           {Name: "gateway", Port: 8080, Published: true},
	"service-discovery": {Name: "service-discovery", Port: 8500},
	"logging":           {Name: "logging", Port: 24224},
	"monitoring":        {Name: "monitoring", Port: 9090},
	"auth-service":      {Name: "auth-service", Port: 4000},
	"config-service":    {Name: "config-service", Port: 8888},
}

// ComponentOrder is the order in which create-app brings components up.
var ComponentOrder = []string{
	"gateway",
	"service-discovery",
	"logging",
	"monitoring",
	"auth-service",
	"config-service",
}

// IsComponentKind reports whether name is a known component kind.
func IsComponentKind(name string) bool {
	_, ok := Components[name]
	return ok
}

// ComponentNames returns the known component kinds, sorted.
func ComponentNames() []string {
	names := make([]string, 0, len(Components))
	for name := range Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InfraServices are the shared backing services every service depends on.
var InfraServices = []string{"mongodb", "rabbitmq", "redis"}

// Network is the compose network components join.
const Network = "mynetwork"
