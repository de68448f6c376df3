// Command embedref compares embedded and referenced one-to-one relationships
// in a document store.
package main

import (
	"os"

	"github.com/mesh-intelligence/embedref/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
