// Command robust-resources checks that out-of-range indices into arrays of
// resources return zero.
package main

import (
	"os"

	"github.com/gogpu/conformance/internal/cli"
	"github.com/gogpu/conformance/internal/suite/robustaccess"
)

func main() {
	os.Exit(cli.Program(robustaccess.ResourcesConfig,
		"Robust buffer access: out-of-range resource array indices.",
		robustaccess.RunResources, os.Args[1:]))
}
