package conformance

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// LinePrefix starts every machine-readable line a program prints. The runner
// ignores everything else on stdout.
const LinePrefix = "PIGLIT: "

// Reporter writes sub-case and final results in the PIGLIT line format:
//
//	PIGLIT: {"subtest":{"ubo":"pass"}}
//	PIGLIT: {"result":"pass"}
//
// Each sub-case is reported once and the final result once. Reporter is safe
// for concurrent use, although programs report from a single goroutine.
type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	subtests map[string]Result
	order    []string
	final    *Result
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, subtests: make(map[string]Result)}
}

type subtestLine struct {
	Subtest map[string]string `json:"subtest"`
}

type resultLine struct {
	Result string `json:"result"`
}

// Subtest reports the outcome of one sub-case.
func (r *Reporter) Subtest(name string, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final != nil {
		return fmt.Errorf("report subtest %q: final result already reported", name)
	}
	if _, dup := r.subtests[name]; dup {
		return fmt.Errorf("report subtest %q: already reported", name)
	}
	r.subtests[name] = res
	r.order = append(r.order, name)
	Logger().Info("subtest", "name", name, "result", res.String())
	return r.writeLocked(subtestLine{Subtest: map[string]string{name: res.String()}})
}

// Final reports the overall result and returns the process exit code.
// Calls after the first are ignored and return the first result's code.
func (r *Reporter) Final(res Result) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final != nil {
		Logger().Warn("final result reported twice", "first", r.final.String(), "second", res.String())
		return r.final.ExitCode()
	}
	r.final = &res
	if err := r.writeLocked(resultLine{Result: res.String()}); err != nil {
		Logger().Warn("write final result", "err", err)
	}
	return res.ExitCode()
}

// Notef writes a free-form diagnostic line. Diagnostic lines never start
// with LinePrefix.
func (r *Reporter) Notef(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

// Subtests returns the reported sub-case outcomes in report order.
func (r *Reporter) Subtests() []NamedResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NamedResult, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, NamedResult{Name: name, Result: r.subtests[name]})
	}
	return out
}

// NamedResult pairs a sub-case name with its outcome.
type NamedResult struct {
	Name   string
	Result Result
}

func (r *Reporter) writeLocked(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result line: %w", err)
	}
	if _, err := fmt.Fprintf(r.w, "%s%s\n", LinePrefix, b); err != nil {
		return fmt.Errorf("write result line: %w", err)
	}
	return nil
}
