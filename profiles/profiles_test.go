package profiles

import (
	"testing"

	"github.com/gogpu/conformance/internal/runner"
)

func TestAllProfileLoads(t *testing.T) {
	p, err := runner.LoadProfile("all.toml")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if len(p.Tests) != 7 {
		t.Errorf("len(Tests) = %d, want 7", len(p.Tests))
	}
}
