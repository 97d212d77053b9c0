// Command punch scaffolds and deploys microservices.
package main

import "github.com/cameronsjo/punch/internal/cmd"

func main() {
	cmd.Execute()
}
