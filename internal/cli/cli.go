// Package cli holds the command-line surface shared by the conformance
// programs.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/harness"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Common holds the flags every program accepts.
type Common struct {
	Repeat   int
	LogLevel string
	Adapter  string
}

// Register adds the common flags to app.
func (c *Common) Register(app *kingpin.Application) {
	app.Flag("repeat", "Run every check this many times; all runs must agree.").Default("1").IntVar(&c.Repeat)
	app.Flag("log-level", "Diagnostic log level on stderr.").Default("warn").EnumVar(&c.LogLevel, "debug", "info", "warn", "error")
	app.Flag("adapter", "Use the first adapter whose name contains this string.").StringVar(&c.Adapter)
}

// InstallLogger routes the package logger to w as text.
func (c *Common) InstallLogger(w io.Writer) {
	level, _ := conformance.ParseLevel(c.LogLevel)
	conformance.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Options converts the flags to harness options.
func (c *Common) Options() []harness.Option {
	opts := []harness.Option{harness.WithRepeat(c.Repeat)}
	if c.Adapter != "" {
		opts = append(opts, harness.WithAdapter(c.Adapter))
	}
	return opts
}

// NewApp returns a kingpin application that reports parse errors to the
// caller instead of exiting.
func NewApp(name, help string, common *Common) *kingpin.Application {
	app := kingpin.New(name, help)
	app.Terminate(nil)
	app.UsageWriter(os.Stderr)
	app.ErrorWriter(os.Stderr)
	common.Register(app)
	return app
}

// Program parses args for a program without positional arguments and runs
// it through the harness, returning the exit code.
func Program(cfg conformance.Config, help string, run func(*harness.Context) conformance.Result, args []string) int {
	var common Common
	app := NewApp(cfg.Name, help, &common)
	if _, err := app.Parse(args); err != nil {
		return UsageFail(app, err)
	}
	common.InstallLogger(os.Stderr)
	return harness.Main(cfg, run, common.Options()...)
}

// UsageFail prints err and the usage text to stderr and reports fail.
func UsageFail(app *kingpin.Application, err error) int {
	fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
	app.Usage(nil)
	return conformance.NewReporter(os.Stdout).Final(conformance.Fail)
}
