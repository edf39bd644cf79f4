// Command robust-read-bounds checks that out-of-bounds reads from uniform
// buffers, storage buffers, sampled textures, storage images and atomic
// counters return zero or an in-bounds value.
package main

import (
	"os"

	"github.com/gogpu/conformance/internal/cli"
	"github.com/gogpu/conformance/internal/suite/robustaccess"
)

func main() {
	os.Exit(cli.Program(robustaccess.ReadBoundsConfig,
		"Robust buffer access: out-of-bounds reads.",
		robustaccess.RunReadBounds, os.Args[1:]))
}
