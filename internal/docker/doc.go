// Package docker wraps the Docker SDK for the operations punch needs
// beyond the docker CLI: removing service images, reporting which compose
// services have running containers, and checking the daemon is reachable.
//
// # Interface Abstraction
//
// The DockerAPI interface abstracts the Docker SDK, enabling mock injection
// for testing. Use NewClientWithAPI for test scenarios.
//
// # Example
//
//	client, err := docker.NewClient()
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	states, err := client.ServiceStates(ctx, "myproject")
//	for name, s := range states {
//	    fmt.Printf("%s: %s\n", name, s.State)
//	}
package docker
