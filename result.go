package conformance

import "fmt"

// Result is the outcome of a program or of one of its sub-cases.
//
// The zero value is Skip so that an aggregate over no sub-cases reports
// nothing was exercised rather than a pass.
type Result int

const (
	// Skip means the behavior could not be exercised on this device.
	Skip Result = iota
	// Pass means every check matched.
	Pass
	// Warn means the checks matched but something else was off, such as
	// a non-zero exit code on a passing run.
	Warn
	// Fail means a check did not match or setup failed.
	Fail
	// Crash means the program terminated abnormally.
	Crash
	// Timeout means the program was killed for running too long.
	Timeout
)

// String returns the lowercase name used on PIGLIT result lines.
func (r Result) String() string {
	switch r {
	case Skip:
		return "skip"
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	case Crash:
		return "crash"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ParseResult is the inverse of String.
func ParseResult(s string) (Result, error) {
	switch s {
	case "skip":
		return Skip, nil
	case "pass":
		return Pass, nil
	case "warn":
		return Warn, nil
	case "fail":
		return Fail, nil
	case "crash":
		return Crash, nil
	case "timeout":
		return Timeout, nil
	}
	return Fail, fmt.Errorf("unknown result %q", s)
}

// Merge combines two outcomes. The worse one wins; skip only survives when
// both sides skipped. Merging a pass into a sequence is therefore the logical
// AND of the individual checks.
func Merge(a, b Result) Result {
	if a > b {
		return a
	}
	return b
}

// MergeAll folds Merge over rs. An empty list yields Skip.
func MergeAll(rs ...Result) Result {
	out := Skip
	for _, r := range rs {
		out = Merge(out, r)
	}
	return out
}

// ExitCode is the process exit status for a final result: pass, skip and
// warn exit 0, everything else exits 1.
func (r Result) ExitCode() int {
	switch r {
	case Pass, Skip, Warn:
		return 0
	default:
		return 1
	}
}

// MarshalText encodes the result by name, for JSON result files.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a result name.
func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
