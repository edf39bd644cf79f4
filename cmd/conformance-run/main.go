// Command conformance-run runs the programs of a profile and reports one
// result per program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/conformance/internal/cli"
	"github.com/gogpu/conformance/internal/runner"
	"gopkg.in/alecthomas/kingpin.v2"
)

type arguments struct {
	profile  string
	results  string
	jobs     int
	filters  []string
	logLevel string
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("conformance-run", "Run conformance programs listed in a TOML profile.")
	profile := app.Flag("profile", "Profile to run.").Default("profiles/all.toml").String()
	results := app.Flag("results", "Write JSON results to this file.").String()
	jobs := app.Flag("jobs", "Programs run concurrently.").Default("1").Int()
	logLevel := app.Flag("log-level", "Diagnostic log level on stderr.").Default("warn").Enum("debug", "info", "warn", "error")
	filters := app.Arg("filter", "Only run tests whose name contains one of these strings.").Strings()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}
	if *jobs < 1 {
		return nil, fmt.Errorf("--jobs must be at least 1, got %d", *jobs)
	}
	return &arguments{
		profile:  *profile,
		results:  *results,
		jobs:     *jobs,
		filters:  *filters,
		logLevel: *logLevel,
	}, nil
}

func (a *arguments) execute(ctx context.Context) (failed bool, err error) {
	p, err := runner.LoadProfile(a.profile)
	if err != nil {
		return false, err
	}
	tests := p.Select(a.filters)
	if len(tests) == 0 {
		return false, fmt.Errorf("no test in %s matches %v", a.profile, a.filters)
	}
	r := &runner.Runner{Profile: p, Jobs: a.jobs}
	res := runner.NewResults(p.Name, r.Run(ctx, tests))
	res.Summary(os.Stdout)
	if a.results != "" {
		if err := res.WriteFile(a.results); err != nil {
			return res.Failed(), err
		}
	}
	return res.Failed(), nil
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	(&cli.Common{LogLevel: args.logLevel}).InstallLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	failed, err := args.execute(ctx)
	if err != nil {
		kingpin.Fatalf("%s", err)
	}
	if failed {
		stop()
		os.Exit(1)
	}
}
