// Package harness runs one conformance program: it validates the program's
// declaration block, opens the device, sequences sub-cases and reports the
// final result.
package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/gpucontext"
)

// Opener opens the device a program runs on.
type Opener func(device.Options) (*device.Device, error)

// Context is passed to a program. It carries everything a program needs;
// programs keep no package-level state.
type Context struct {
	Config conformance.Config
	Device *device.Device
	Report *conformance.Reporter
	Log    *slog.Logger

	// Iterations is how many times each check runs. Every iteration must
	// produce the same outcome.
	Iterations int
}

// Subtest is one named sub-case. Run returns nil on success, an error
// matching conformance.ErrMismatch on a verification failure,
// conformance.ErrUnsupported when the sub-case cannot run here, or any other
// error when setup failed.
type Subtest struct {
	Name string
	Run  func() error
}

type options struct {
	open       Opener
	out        io.Writer
	device     device.Options
	iterations int
}

// Option configures Main.
type Option func(*options)

// WithOpener replaces device.Open.
func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

// WithOutput sets where result lines are written. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithProvider runs the program on a device created elsewhere instead of
// opening one. The device is not destroyed when the program ends.
func WithProvider(provider gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.open = func(device.Options) (*device.Device, error) {
			return device.FromProvider(provider)
		}
	}
}

// WithAdapter selects an adapter by name substring.
func WithAdapter(name string) Option {
	return func(o *options) { o.device.Adapter = name }
}

// WithRepeat runs every check n times. Values below 1 mean 1.
func WithRepeat(n int) Option {
	return func(o *options) { o.iterations = n }
}

// Main runs a program and returns the process exit code.
func Main(cfg conformance.Config, run func(*Context) conformance.Result, opts ...Option) int {
	o := options{open: device.Open, out: os.Stdout, iterations: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.iterations < 1 {
		o.iterations = 1
	}
	log := conformance.Logger().With("program", cfg.Name)
	rep := conformance.NewReporter(o.out)

	if err := cfg.Validate(); err != nil {
		rep.Notef("%v", err)
		return rep.Final(conformance.Fail)
	}
	if cfg.RequireRobustAccess {
		// hal has no robustness toggle; the programs verify the behavior.
		log.Info("harness: program requires robust buffer access")
	}

	o.device.Features |= cfg.RequiredFeatures
	dev, err := o.open(o.device)
	if err != nil {
		res := conformance.ResultFor(err)
		rep.Notef("open device: %v", err)
		log.Warn("harness: device unavailable", "err", err, "result", res.String())
		return rep.Final(res)
	}
	defer dev.Close()

	ctx := &Context{
		Config:     cfg,
		Device:     dev,
		Report:     rep,
		Log:        log,
		Iterations: o.iterations,
	}
	return rep.Final(finalResult(run(ctx), rep.Subtests()))
}

// finalResult merges the program's result with every reported sub-case, so
// a final result never hides a failed sub-case.
func finalResult(res conformance.Result, subs []conformance.NamedResult) conformance.Result {
	rs := make([]conformance.Result, 0, len(subs)+1)
	rs = append(rs, res)
	for _, s := range subs {
		rs = append(rs, s.Result)
	}
	return conformance.MergeAll(rs...)
}

// Subtests runs sub-cases in order and reports each one. A mismatch fails
// its sub-case and the next one runs; a setup error fails its sub-case and
// no further sub-cases run. The returned result merges all reported ones.
func (c *Context) Subtests(subs []Subtest) conformance.Result {
	overall := conformance.Skip
	for _, sub := range subs {
		res, err := c.Check(sub.Run)
		if err != nil {
			c.Report.Notef("%s: %v", sub.Name, err)
		}
		if rerr := c.Report.Subtest(sub.Name, res); rerr != nil {
			c.Log.Warn("harness: report subtest", "err", rerr)
		}
		overall = conformance.Merge(overall, res)
		if conformance.IsSetupError(err) {
			c.Log.Error("harness: setup failed, remaining sub-cases skipped", "subtest", sub.Name, "err", err)
			return conformance.Fail
		}
	}
	return overall
}

// Check runs fn Iterations times and returns its outcome. A setup error
// stops the iterations; an outcome that changes between iterations fails.
func (c *Context) Check(fn func() error) (conformance.Result, error) {
	n := c.Iterations
	if n < 1 {
		n = 1
	}
	var first conformance.Result
	var firstErr error
	for i := 0; i < n; i++ {
		err := fn()
		res := conformance.ResultFor(err)
		if conformance.IsSetupError(err) {
			return conformance.Fail, err
		}
		if i == 0 {
			first, firstErr = res, err
			continue
		}
		if res != first {
			return conformance.Fail, fmt.Errorf("%w: iteration %d gave %s, iteration 1 gave %s",
				conformance.ErrMismatch, i+1, res, first)
		}
		c.Log.Debug("harness: iteration", "n", i+1, "result", res.String())
	}
	return first, firstErr
}
