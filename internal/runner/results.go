package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gogpu/conformance"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Results is the record of one profile run.
type Results struct {
	Profile string         `json:"profile"`
	Tests   []Outcome      `json:"tests"`
	Totals  map[string]int `json:"totals"`
}

// NewResults tallies outcomes by result.
func NewResults(profile string, outcomes []Outcome) *Results {
	r := &Results{Profile: profile, Tests: outcomes, Totals: make(map[string]int)}
	for _, o := range outcomes {
		r.Totals[o.Result.String()]++
	}
	return r
}

// Failed reports whether any test ended worse than a warning.
func (r *Results) Failed() bool {
	for _, o := range r.Tests {
		if o.Result > conformance.Warn {
			return true
		}
	}
	return false
}

// Write encodes the results as indented JSON.
func (r *Results) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the results to path, creating its directory.
func (r *Results) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return f.Close()
}

// Summary prints one line per test and the totals.
func (r *Results) Summary(w io.Writer) {
	p := message.NewPrinter(language.English)
	for _, o := range r.Tests {
		p.Fprintf(w, "%-8s %s (%.2fs)\n", o.Result, o.Name, o.Time)
		names := make([]string, 0, len(o.Subtests))
		for name := range o.Subtests {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p.Fprintf(w, "         %s: %s\n", name, o.Subtests[name])
		}
	}
	p.Fprintf(w, "%d tests:", len(r.Tests))
	for res := conformance.Skip; res <= conformance.Timeout; res++ {
		if n := r.Totals[res.String()]; n > 0 {
			p.Fprintf(w, " %d %s", n, res)
		}
	}
	fmt.Fprintln(w)
}
