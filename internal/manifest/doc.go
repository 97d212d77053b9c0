// Package manifest renders the deployment artifacts for a service or
// component: the container build file, the cluster manifests, the
// environment file, the package manifest and compose blocks.
//
// Every function here is pure. Callers write the returned text.
//
// # Descriptors
//
// A ServiceDescriptor names the service and its assigned port:
//
//	d := manifest.ServiceDescriptor{Name: "orders", Port: 3001}
//	dockerfile, err := manifest.BuildFile(d)
//
// Components are drawn from a closed set of kinds (see Components).
package manifest
