// Command robust-ssbo-write checks that out-of-bounds storage buffer writes
// do not touch memory outside the bound range.
package main

import (
	"os"

	"github.com/gogpu/conformance/internal/cli"
	"github.com/gogpu/conformance/internal/suite/robustaccess"
)

func main() {
	os.Exit(cli.Program(robustaccess.SSBOWriteConfig,
		"Robust buffer access: out-of-bounds storage buffer writes.",
		robustaccess.RunSSBOWrite, os.Args[1:]))
}
