package runner

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultTimeout applies to tests when neither the test nor the profile
// sets one.
const DefaultTimeout = 60 * time.Second

// ErrInvalidProfile is returned for a profile that cannot be run.
var ErrInvalidProfile = errors.New("runner: invalid profile")

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Profile lists the programs of one run.
//
//	name = "all"
//	bin_dir = "bin"
//	timeout = "60s"
//
//	[env]
//	VK_LOADER_DEBUG = "error"
//
//	[[test]]
//	name = "sample-mask-4"
//	command = "sample-mask"
//	args = ["4"]
type Profile struct {
	Name    string            `toml:"name"`
	BinDir  string            `toml:"bin_dir"`
	Timeout Duration          `toml:"timeout"`
	Env     map[string]string `toml:"env"`
	Tests   []TestSpec        `toml:"test"`
}

// TestSpec is one program invocation.
type TestSpec struct {
	Name    string            `toml:"name"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	Timeout Duration          `toml:"timeout"`
}

// LoadProfile reads and validates a TOML profile. A relative bin_dir is
// resolved against the profile's directory.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidProfile, path, strings.Join(keys, ", "))
	}
	if p.BinDir != "" && !filepath.IsAbs(p.BinDir) {
		p.BinDir = filepath.Join(filepath.Dir(path), p.BinDir)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Validate checks that every test has a unique name and a command.
func (p *Profile) Validate() error {
	if len(p.Tests) == 0 {
		return fmt.Errorf("%w: no tests", ErrInvalidProfile)
	}
	seen := make(map[string]bool, len(p.Tests))
	for i, t := range p.Tests {
		if t.Name == "" {
			return fmt.Errorf("%w: test %d has no name", ErrInvalidProfile, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate test %q", ErrInvalidProfile, t.Name)
		}
		seen[t.Name] = true
		if t.Command == "" {
			return fmt.Errorf("%w: test %q has no command", ErrInvalidProfile, t.Name)
		}
		if t.Timeout.Duration < 0 {
			return fmt.Errorf("%w: test %q has a negative timeout", ErrInvalidProfile, t.Name)
		}
	}
	if p.Timeout.Duration < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidProfile)
	}
	return nil
}

// Select returns the tests whose names contain any of the filters, or all
// tests when no filter is given.
func (p *Profile) Select(filters []string) []TestSpec {
	if len(filters) == 0 {
		return p.Tests
	}
	var out []TestSpec
	for _, t := range p.Tests {
		for _, f := range filters {
			if strings.Contains(t.Name, f) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// timeoutFor returns the effective timeout of t.
func (p *Profile) timeoutFor(t TestSpec) time.Duration {
	switch {
	case t.Timeout.Duration > 0:
		return t.Timeout.Duration
	case p.Timeout.Duration > 0:
		return p.Timeout.Duration
	}
	return DefaultTimeout
}

// commandPath resolves a test command against bin_dir.
func (p *Profile) commandPath(t TestSpec) string {
	if filepath.IsAbs(t.Command) || p.BinDir == "" {
		return t.Command
	}
	return filepath.Join(p.BinDir, t.Command)
}
