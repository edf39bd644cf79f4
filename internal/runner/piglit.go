// Package runner runs conformance program binaries listed in a TOML
// profile and interprets their PIGLIT result lines, exit status and
// termination into one outcome per program.
package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gogpu/conformance"
)

// piglitLine is the union of the objects programs print after LinePrefix.
type piglitLine struct {
	Result  *conformance.Result           `json:"result"`
	Subtest map[string]conformance.Result `json:"subtest"`
}

// Parsed is the interpretation of a program's stdout.
type Parsed struct {
	// Result is the last reported final result, Fail if none was reported.
	Result   conformance.Result
	Reported bool
	Subtests map[string]conformance.Result
	// Out is stdout without the result lines.
	Out string
}

// ParseOutput merges every result line of out. Later lines override earlier
// values for the same key.
func ParseOutput(out string) (Parsed, error) {
	p := Parsed{Result: conformance.Fail}
	lines := strings.Split(out, "\n")
	rest := make([]string, 0, len(lines))
	prefix := strings.TrimSpace(conformance.LinePrefix)
	for _, l := range lines {
		if !strings.HasPrefix(l, prefix) {
			rest = append(rest, l)
			continue
		}
		var pl piglitLine
		if err := json.Unmarshal([]byte(strings.TrimPrefix(l, prefix)), &pl); err != nil {
			return p, fmt.Errorf("parse result line %q: %w", l, err)
		}
		if pl.Result != nil {
			p.Result = *pl.Result
			p.Reported = true
		}
		for name, res := range pl.Subtest {
			if p.Subtests == nil {
				p.Subtests = make(map[string]conformance.Result)
			}
			p.Subtests[name] = res
		}
	}
	p.Out = strings.Join(rest, "\n")
	return p, nil
}
