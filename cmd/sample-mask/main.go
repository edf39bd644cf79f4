// Command sample-mask checks that a fragment shader's sample mask output
// controls which samples of a multisampled target are written.
//
// Usage:
//
//	sample-mask [--dump DIR] <num_samples>
package main

import (
	"os"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/cli"
	"github.com/gogpu/conformance/internal/harness"
	"github.com/gogpu/conformance/internal/suite/samplemask"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var common cli.Common
	app := cli.NewApp(samplemask.Config.Name, "Sample mask output of the fragment stage.", &common)
	samples := app.Arg("num_samples", "Sample count of the render target (decimal, 0x hex or 0 octal).").Required().String()
	dump := app.Flag("dump", "Write failing windows as PNG files into this directory.").String()
	if _, err := app.Parse(args); err != nil {
		return cli.UsageFail(app, err)
	}
	n, err := samplemask.ParseSamples(*samples)
	if err != nil {
		return cli.UsageFail(app, err)
	}
	common.InstallLogger(os.Stderr)

	opts := samplemask.Options{Samples: n, DumpDir: *dump}
	return harness.Main(samplemask.Config, func(ctx *harness.Context) conformance.Result {
		return samplemask.Run(ctx, opts)
	}, common.Options()...)
}
