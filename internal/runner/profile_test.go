package runner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
name = "robust"
bin_dir = "bin"
timeout = "30s"

[env]
A = "profile"

[[test]]
name = "read-bounds"
command = "robust-read-bounds"

[[test]]
name = "sample-mask-4"
command = "sample-mask"
args = ["4"]
timeout = "5s"

[test.env]
A = "test"
`)
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Name != "robust" {
		t.Errorf("Name = %q", p.Name)
	}
	if want := filepath.Join(filepath.Dir(path), "bin"); p.BinDir != want {
		t.Errorf("BinDir = %q, want %q", p.BinDir, want)
	}
	if len(p.Tests) != 2 {
		t.Fatalf("len(Tests) = %d, want 2", len(p.Tests))
	}
	if got := p.timeoutFor(p.Tests[0]); got != 30*time.Second {
		t.Errorf("timeoutFor(read-bounds) = %v, want 30s", got)
	}
	if got := p.timeoutFor(p.Tests[1]); got != 5*time.Second {
		t.Errorf("timeoutFor(sample-mask-4) = %v, want 5s", got)
	}
	if got := p.Tests[1].Args; len(got) != 1 || got[0] != "4" {
		t.Errorf("Args = %v", got)
	}
	if got := p.Tests[1].Env["A"]; got != "test" {
		t.Errorf("test env A = %q", got)
	}
	if want := filepath.Join(p.BinDir, "sample-mask"); p.commandPath(p.Tests[1]) != want {
		t.Errorf("commandPath = %q, want %q", p.commandPath(p.Tests[1]), want)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"syntax", `name = `, false},
		{"bad duration", "timeout = \"soon\"\n[[test]]\nname = \"a\"\ncommand = \"a\"\n", false},
		{"unknown key", "colour = \"red\"\n[[test]]\nname = \"a\"\ncommand = \"a\"\n", true},
		{"no tests", `name = "empty"`, true},
		{"no name", "[[test]]\ncommand = \"a\"\n", true},
		{"no command", "[[test]]\nname = \"a\"\n", true},
		{"duplicate", "[[test]]\nname = \"a\"\ncommand = \"a\"\n[[test]]\nname = \"a\"\ncommand = \"b\"\n", true},
		{"negative timeout", "[[test]]\nname = \"a\"\ncommand = \"a\"\ntimeout = \"-1s\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tt.body))
			if err == nil {
				t.Fatal("LoadProfile succeeded")
			}
			if got := errors.Is(err, ErrInvalidProfile); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidProfile) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestLoadProfileMissing(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("LoadProfile succeeded on a missing file")
	}
}

func TestSelect(t *testing.T) {
	p := &Profile{Tests: []TestSpec{
		{Name: "robust-read-bounds"},
		{Name: "robust-resources"},
		{Name: "sample-mask-0"},
		{Name: "sample-mask-4"},
	}}
	tests := []struct {
		filters []string
		want    []string
	}{
		{nil, []string{"robust-read-bounds", "robust-resources", "sample-mask-0", "sample-mask-4"}},
		{[]string{"robust"}, []string{"robust-read-bounds", "robust-resources"}},
		{[]string{"mask-4", "resources"}, []string{"robust-resources", "sample-mask-4"}},
		{[]string{"none"}, nil},
	}
	for _, tt := range tests {
		got := p.Select(tt.filters)
		if len(got) != len(tt.want) {
			t.Errorf("Select(%v) = %d tests, want %d", tt.filters, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Name != tt.want[i] {
				t.Errorf("Select(%v)[%d] = %q, want %q", tt.filters, i, got[i].Name, tt.want[i])
			}
		}
	}
}

func TestTimeoutDefault(t *testing.T) {
	p := &Profile{}
	if got := p.timeoutFor(TestSpec{}); got != DefaultTimeout {
		t.Errorf("timeoutFor = %v, want %v", got, DefaultTimeout)
	}
}

func TestCommandPath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "prog")
	tests := []struct {
		binDir, command, want string
	}{
		{"", "prog", "prog"},
		{"/opt/bin", "prog", filepath.Join("/opt/bin", "prog")},
		{"/opt/bin", abs, abs},
	}
	for _, tt := range tests {
		p := &Profile{BinDir: tt.binDir}
		if got := p.commandPath(TestSpec{Command: tt.command}); got != tt.want {
			t.Errorf("commandPath(%q, %q) = %q, want %q", tt.binDir, tt.command, got, tt.want)
		}
	}
}
