package harness

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var testConfig = conformance.Config{Name: "harness-test"}

func noDevice(device.Options) (*device.Device, error) { return nil, nil }

func lines(out string) []string {
	var got []string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, conformance.LinePrefix) {
			got = append(got, l)
		}
	}
	return got
}

func TestMainPass(t *testing.T) {
	var out bytes.Buffer
	code := Main(testConfig, func(*Context) conformance.Result { return conformance.Pass },
		WithOpener(noDevice), WithOutput(&out))
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	want := []string{`PIGLIT: {"result":"pass"}`}
	if got := lines(out.String()); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestMainDeviceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantLine string
		wantCode int
	}{
		{"unsupported", fmt.Errorf("%w: no adapter", conformance.ErrUnsupported), `PIGLIT: {"result":"skip"}`, 0},
		{"broken", errors.New("driver exploded"), `PIGLIT: {"result":"fail"}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			ran := false
			code := Main(testConfig, func(*Context) conformance.Result {
				ran = true
				return conformance.Pass
			}, WithOutput(&out), WithOpener(func(device.Options) (*device.Device, error) { return nil, tt.err }))
			if ran {
				t.Error("program ran without a device")
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if got := lines(out.String()); len(got) != 1 || got[0] != tt.wantLine {
				t.Errorf("lines = %q, want [%q]", got, tt.wantLine)
			}
		})
	}
}

func TestMainInvalidConfig(t *testing.T) {
	var out bytes.Buffer
	opened := false
	code := Main(conformance.Config{}, func(*Context) conformance.Result { return conformance.Pass },
		WithOutput(&out), WithOpener(func(device.Options) (*device.Device, error) {
			opened = true
			return nil, nil
		}))
	if opened {
		t.Error("device opened for an invalid config")
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestMainPassesFeaturesAndAdapter(t *testing.T) {
	var got device.Options
	cfg := testConfig
	cfg.RequiredFeatures = 1
	Main(cfg, func(*Context) conformance.Result { return conformance.Pass },
		WithOutput(&bytes.Buffer{}), WithAdapter("llvmpipe"),
		WithOpener(func(o device.Options) (*device.Device, error) {
			got = o
			return nil, nil
		}))
	if got.Adapter != "llvmpipe" || got.Features != 1 {
		t.Errorf("device options = %+v", got)
	}
}

func TestSubtests(t *testing.T) {
	mismatch := fmt.Errorf("ubo: %w", conformance.ErrMismatch)
	unsupported := fmt.Errorf("%w: 8 samples", conformance.ErrUnsupported)
	setup := errors.New("create buffer: out of memory")

	tests := []struct {
		name      string
		results   []error
		wantLines []string
		wantRes   conformance.Result
	}{
		{
			name:    "all pass",
			results: []error{nil, nil},
			wantLines: []string{
				`PIGLIT: {"subtest":{"s0":"pass"}}`,
				`PIGLIT: {"subtest":{"s1":"pass"}}`,
				`PIGLIT: {"result":"pass"}`,
			},
			wantRes: conformance.Pass,
		},
		{
			name:    "mismatch continues",
			results: []error{mismatch, nil},
			wantLines: []string{
				`PIGLIT: {"subtest":{"s0":"fail"}}`,
				`PIGLIT: {"subtest":{"s1":"pass"}}`,
				`PIGLIT: {"result":"fail"}`,
			},
			wantRes: conformance.Fail,
		},
		{
			name:    "unsupported skips",
			results: []error{unsupported, nil},
			wantLines: []string{
				`PIGLIT: {"subtest":{"s0":"skip"}}`,
				`PIGLIT: {"subtest":{"s1":"pass"}}`,
				`PIGLIT: {"result":"pass"}`,
			},
			wantRes: conformance.Pass,
		},
		{
			name:    "setup error aborts",
			results: []error{nil, setup, nil},
			wantLines: []string{
				`PIGLIT: {"subtest":{"s0":"pass"}}`,
				`PIGLIT: {"subtest":{"s1":"fail"}}`,
				`PIGLIT: {"result":"fail"}`,
			},
			wantRes: conformance.Fail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var gotRes conformance.Result
			ran := 0
			Main(testConfig, func(ctx *Context) conformance.Result {
				subs := make([]Subtest, len(tt.results))
				for i, err := range tt.results {
					subs[i] = Subtest{Name: fmt.Sprintf("s%d", i), Run: func() error {
						ran++
						return err
					}}
				}
				gotRes = ctx.Subtests(subs)
				return gotRes
			}, WithOpener(noDevice), WithOutput(&out))

			if gotRes != tt.wantRes {
				t.Errorf("result = %v, want %v", gotRes, tt.wantRes)
			}
			if got := lines(out.String()); fmt.Sprint(got) != fmt.Sprint(tt.wantLines) {
				t.Errorf("lines =\n%q\nwant\n%q", got, tt.wantLines)
			}
			if tt.name == "setup error aborts" && ran != 2 {
				t.Errorf("ran %d sub-cases, want 2", ran)
			}
		})
	}
}

func TestCheckRepeats(t *testing.T) {
	ctx := &Context{Iterations: 3, Log: conformance.Logger()}
	calls := 0
	res, err := ctx.Check(func() error {
		calls++
		return nil
	})
	if res != conformance.Pass || err != nil || calls != 3 {
		t.Errorf("Check = %v, %v after %d calls; want pass, nil, 3", res, err, calls)
	}
}

func TestCheckDetectsChangingOutcome(t *testing.T) {
	ctx := &Context{Iterations: 3, Log: conformance.Logger()}
	calls := 0
	res, err := ctx.Check(func() error {
		calls++
		if calls == 2 {
			return conformance.ErrMismatch
		}
		return nil
	})
	if res != conformance.Fail || !errors.Is(err, conformance.ErrMismatch) {
		t.Errorf("Check = %v, %v; want fail with mismatch", res, err)
	}
}

func TestCheckStopsOnSetupError(t *testing.T) {
	ctx := &Context{Iterations: 5, Log: conformance.Logger()}
	calls := 0
	setup := errors.New("no memory")
	res, err := ctx.Check(func() error {
		calls++
		return setup
	})
	if res != conformance.Fail || !errors.Is(err, setup) || calls != 1 {
		t.Errorf("Check = %v, %v after %d calls", res, err, calls)
	}
}

type halDevice struct{ hal.Device }

type halQueue struct{ hal.Queue }

// provider mimics an application's device provider exposing HAL objects.
type provider struct {
	dev   hal.Device
	queue hal.Queue
}

func (p provider) Device() gpucontext.Device             { return p }
func (p provider) Queue() gpucontext.Queue               { return p }
func (p provider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p provider) Adapter() gpucontext.Adapter           { return nil }
func (p provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "app gpu"}
}
func (p provider) HalDevice() any { return p.dev }
func (p provider) HalQueue() any  { return p.queue }

func TestMainWithProvider(t *testing.T) {
	dev, queue := halDevice{}, halQueue{}
	var out bytes.Buffer
	var name string
	code := Main(testConfig, func(ctx *Context) conformance.Result {
		name = ctx.Device.Name()
		if ctx.Device.HAL() != hal.Device(dev) || ctx.Device.Queue() != hal.Queue(queue) {
			t.Error("program did not receive the provided device")
		}
		return conformance.Pass
	}, WithOutput(&out), WithProvider(provider{dev: dev, queue: queue}))
	if code != 0 {
		t.Errorf("exit code = %d, want 0\n%s", code, out.String())
	}
	if name != "app gpu" {
		t.Errorf("device name = %q, want the provider's adapter name", name)
	}
}

func TestMainWithBadProvider(t *testing.T) {
	var out bytes.Buffer
	code := Main(testConfig, func(*Context) conformance.Result {
		t.Error("program ran without a device")
		return conformance.Pass
	}, WithOutput(&out), WithProvider(provider{}))
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if got := lines(out.String()); len(got) != 1 || got[0] != `PIGLIT: {"result":"fail"}` {
		t.Errorf("lines = %q", got)
	}
}

func TestMainFinalKeepsSubtestFailure(t *testing.T) {
	var out bytes.Buffer
	code := Main(testConfig, func(ctx *Context) conformance.Result {
		_ = ctx.Report.Subtest("ubo", conformance.Fail)
		return conformance.Pass
	}, WithOpener(noDevice), WithOutput(&out))
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	got := lines(out.String())
	if len(got) != 2 || got[1] != `PIGLIT: {"result":"fail"}` {
		t.Errorf("lines = %q", got)
	}
}

func TestFinalResult(t *testing.T) {
	tests := []struct {
		res  conformance.Result
		subs []conformance.NamedResult
		want conformance.Result
	}{
		{conformance.Pass, nil, conformance.Pass},
		{conformance.Skip, nil, conformance.Skip},
		{conformance.Pass, []conformance.NamedResult{{Name: "a", Result: conformance.Skip}}, conformance.Pass},
		{conformance.Skip, []conformance.NamedResult{{Name: "a", Result: conformance.Pass}}, conformance.Pass},
		{conformance.Pass, []conformance.NamedResult{{Name: "a", Result: conformance.Pass}, {Name: "b", Result: conformance.Fail}}, conformance.Fail},
		{conformance.Fail, []conformance.NamedResult{{Name: "a", Result: conformance.Pass}}, conformance.Fail},
	}
	for _, tt := range tests {
		if got := finalResult(tt.res, tt.subs); got != tt.want {
			t.Errorf("finalResult(%v, %v) = %v, want %v", tt.res, tt.subs, got, tt.want)
		}
	}
}
