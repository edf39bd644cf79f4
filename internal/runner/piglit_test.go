package runner

import (
	"strings"
	"testing"

	"github.com/gogpu/conformance"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		result   conformance.Result
		reported bool
		subtests map[string]conformance.Result
		rest     string
	}{
		{
			name:   "no result line",
			out:    "hello\n",
			result: conformance.Fail,
			rest:   "hello\n",
		},
		{
			name:     "single result",
			out:      "PIGLIT: {\"result\": \"pass\"}\n",
			result:   conformance.Pass,
			reported: true,
			rest:     "\n",
		},
		{
			name: "subtests merged",
			out: "PIGLIT: {\"subtest\": {\"ubo\": \"pass\"}}\n" +
				"noise\n" +
				"PIGLIT: {\"subtest\": {\"ssbo\": \"fail\"}}\n" +
				"PIGLIT: {\"result\": \"fail\"}\n",
			result:   conformance.Fail,
			reported: true,
			subtests: map[string]conformance.Result{"ubo": conformance.Pass, "ssbo": conformance.Fail},
			rest:     "noise\n",
		},
		{
			name: "later line wins",
			out: "PIGLIT: {\"subtest\": {\"ubo\": \"fail\"}}\n" +
				"PIGLIT: {\"subtest\": {\"ubo\": \"pass\"}, \"result\": \"skip\"}",
			result:   conformance.Skip,
			reported: true,
			subtests: map[string]conformance.Result{"ubo": conformance.Pass},
			rest:     "",
		},
		{
			name:     "no space after prefix",
			out:      "PIGLIT:{\"result\":\"warn\"}",
			result:   conformance.Warn,
			reported: true,
			rest:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseOutput(tt.out)
			if err != nil {
				t.Fatalf("ParseOutput: %v", err)
			}
			if p.Result != tt.result {
				t.Errorf("Result = %v, want %v", p.Result, tt.result)
			}
			if p.Reported != tt.reported {
				t.Errorf("Reported = %v, want %v", p.Reported, tt.reported)
			}
			if len(p.Subtests) != len(tt.subtests) {
				t.Fatalf("Subtests = %v, want %v", p.Subtests, tt.subtests)
			}
			for k, v := range tt.subtests {
				if p.Subtests[k] != v {
					t.Errorf("Subtests[%q] = %v, want %v", k, p.Subtests[k], v)
				}
			}
			if p.Out != tt.rest {
				t.Errorf("Out = %q, want %q", p.Out, tt.rest)
			}
		})
	}
}

func TestParseOutputErrors(t *testing.T) {
	for _, out := range []string{
		"PIGLIT: not json",
		"PIGLIT: {\"result\": \"great\"}",
	} {
		if _, err := ParseOutput(out); err == nil {
			t.Errorf("ParseOutput(%q) succeeded", out)
		}
	}
}

func TestParseOutputRoundTrip(t *testing.T) {
	var buf strings.Builder
	rep := conformance.NewReporter(&buf)
	rep.Subtest("texture", conformance.Pass)
	rep.Subtest("copy", conformance.Fail)
	rep.Final(conformance.Fail)

	p, err := ParseOutput(buf.String())
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if p.Result != conformance.Fail || !p.Reported {
		t.Errorf("Result = %v (reported %v), want fail", p.Result, p.Reported)
	}
	if p.Subtests["texture"] != conformance.Pass || p.Subtests["copy"] != conformance.Fail {
		t.Errorf("Subtests = %v", p.Subtests)
	}
}

func TestAppendLine(t *testing.T) {
	tests := []struct{ s, line, want string }{
		{"", "x", "x\n"},
		{"err\n", "x", "err\nx\n"},
		{"err", "x", "err\nx\n"},
	}
	for _, tt := range tests {
		if got := appendLine(tt.s, tt.line); got != tt.want {
			t.Errorf("appendLine(%q, %q) = %q, want %q", tt.s, tt.line, got, tt.want)
		}
	}
}
