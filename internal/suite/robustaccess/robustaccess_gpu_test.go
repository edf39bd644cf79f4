//go:build !nogpu

package robustaccess

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/harness"
)

// runProgram runs a program on a real device and returns its result lines.
// The outcome depends on the driver, so callers check only the shape of
// the report.
func runProgram(t *testing.T, cfg conformance.Config, run func(*harness.Context) conformance.Result) []string {
	t.Helper()
	dev, err := device.Open(device.Options{})
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	var out bytes.Buffer
	harness.Main(cfg, run, harness.WithOutput(&out),
		harness.WithOpener(func(device.Options) (*device.Device, error) { return dev, nil }))

	var lines []string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(l, conformance.LinePrefix) {
			lines = append(lines, l)
		}
	}
	t.Logf("%s:\n%s", cfg.Name, out.String())
	return lines
}

func TestReadBoundsReportShape(t *testing.T) {
	lines := runProgram(t, ReadBoundsConfig, RunReadBounds)
	if len(lines) == 0 || !strings.Contains(lines[len(lines)-1], `"result"`) {
		t.Fatalf("missing final result line: %q", lines)
	}
	if len(lines) != len(readCases)+1 && !strings.Contains(lines[len(lines)-1], "fail") {
		t.Errorf("got %d lines, want %d", len(lines), len(readCases)+1)
	}
}

func TestResourcesReportShape(t *testing.T) {
	lines := runProgram(t, ResourcesConfig, RunResources)
	if len(lines) == 0 || !strings.Contains(lines[len(lines)-1], `"result"`) {
		t.Fatalf("missing final result line: %q", lines)
	}
}

func TestSSBOWriteReportShape(t *testing.T) {
	lines := runProgram(t, SSBOWriteConfig, RunSSBOWrite)
	if len(lines) != 1 || !strings.Contains(lines[0], `"result"`) {
		t.Fatalf("lines = %q, want only a final result", lines)
	}
}
