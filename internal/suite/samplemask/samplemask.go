// Package samplemask holds the sample-mask program: a fragment program
// writes a per-fragment coverage mask into a multisampled target and a
// second program checks every sample of the result.
package samplemask

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/dispatch"
	"github.com/gogpu/conformance/internal/fixture"
	"github.com/gogpu/conformance/internal/harness"
	"github.com/gogpu/conformance/internal/shader"
	"github.com/gogpu/conformance/internal/verify"
	"github.com/gogpu/gputypes"
)

// PatternSize is the width and height of the pattern and of the window the
// result is checked in.
const PatternSize = 128

// Config declares the sample-mask program.
var Config = conformance.Config{
	Name:         "sample-mask",
	WindowWidth:  PatternSize,
	WindowHeight: PatternSize,
}

// ErrUsage is returned by ParseSamples for a malformed argument.
var ErrUsage = errors.New("usage: sample-mask <num_samples>")

var (
	green       = [4]uint8{0, 255, 0, 255}
	transparent = gputypes.Color{R: 0, G: 0, B: 0, A: 0}
)

// ParseSamples parses the sample count argument. As with C's strtol in
// base 0, a 0x prefix selects hex and a leading 0 octal; digit separators
// and the 0b and 0o prefixes are rejected.
func ParseSamples(arg string) (int, error) {
	if strings.ContainsRune(arg, '_') || hasBasePrefix(arg, "0b", "0o") {
		return 0, fmt.Errorf("%w: invalid sample count %q", ErrUsage, arg)
	}
	n, err := strconv.ParseInt(arg, 0, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid sample count %q", ErrUsage, arg)
	}
	return int(n), nil
}

func hasBasePrefix(arg string, prefixes ...string) bool {
	digits := strings.TrimLeft(arg, "+-")
	for _, p := range prefixes {
		if len(digits) >= len(p) && strings.EqualFold(digits[:len(p)], p) {
			return true
		}
	}
	return false
}

// Mask is the coverage pattern written for the fragment at pixel (x, y).
// For a 128x128 pattern no two mask bits are correlated. The products wrap
// at 32 bits, matching the shader.
func Mask(x, y uint32) uint32 {
	return (x * 0x10204081) ^ (y * 0x01010101)
}

// Options configure Run.
type Options struct {
	// Samples is the sample count; 0 selects a single-sample target without
	// a mask write.
	Samples int
	// DumpDir receives PNGs of failing windows when set.
	DumpDir string
}

// state is the program's resources and derived parameters. It replaces any
// package-level test state.
type state struct {
	dev     *device.Device
	opts    Options
	samples uint32 // texture sample count, at least 1

	writer  *shader.Program
	copier  *shader.Program
	checker *shader.Program
	window  *fixture.Texture
}

func (s *state) multisampled() bool { return s.samples > 1 }

// Run runs the texture and copy sub-cases.
func Run(ctx *harness.Context, opts Options) conformance.Result {
	if !ctx.Device.SupportsSampleCount(opts.Samples) {
		ctx.Report.Notef("sample count %d not supported", opts.Samples)
		return conformance.Skip
	}
	s := &state{dev: ctx.Device, opts: opts, samples: uint32(max(opts.Samples, 1))} //nolint:gosec // bounded by SupportsSampleCount
	if err := s.build(); err != nil {
		s.destroy()
		ctx.Report.Notef("setup: %v", err)
		return conformance.ResultFor(err)
	}
	defer s.destroy()

	return ctx.Subtests([]harness.Subtest{
		{Name: "texture", Run: s.checkTexture},
		{Name: "copy", Run: s.checkCopy},
	})
}

func (s *state) build() error {
	var err error
	s.writer, err = shader.NewRenderProgram(s.dev, "sample_mask_writer", shader.RenderSpec{
		Source:        shader.MaskWriter{WriteMask: s.opts.Samples > 0}.Source(),
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Samples:       s.samples,
	})
	if err != nil {
		return err
	}

	s.copier, err = shader.NewRenderProgram(s.dev, "sample_mask_copy", shader.RenderSpec{
		Source:        shader.SampleCopy{Multisampled: s.multisampled()}.Source(),
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Samples:       s.samples,
	})
	if err != nil {
		return err
	}

	checkSrc, err := shader.MaskChecker{Multisampled: s.multisampled(), Samples: s.opts.Samples}.Source()
	if err != nil {
		return err
	}
	s.checker, err = shader.NewRenderProgram(s.dev, "sample_mask_checker", shader.RenderSpec{
		Source:        checkSrc,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Samples:       1,
	})
	if err != nil {
		return err
	}

	s.window, err = fixture.NewTexture(s.dev, fixture.TextureSpec{
		Label:  "sample_mask_window",
		Width:  PatternSize,
		Height: PatternSize,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	return err
}

func (s *state) destroy() {
	s.window.Destroy()
	s.checker.Destroy()
	s.copier.Destroy()
	s.writer.Destroy()
}

// newTarget creates a color target with the program's sample count that a
// later pass can sample.
func (s *state) newTarget(label string) (*fixture.Texture, error) {
	return fixture.NewTexture(s.dev, fixture.TextureSpec{
		Label:   label,
		Width:   PatternSize,
		Height:  PatternSize,
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Samples: s.samples,
		Usage:   gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
}

// checkTexture renders the mask directly into a multisampled texture.
func (s *state) checkTexture() error {
	tex, err := s.newTarget("sample_mask_texture")
	if err != nil {
		return err
	}
	defer tex.Destroy()

	if err := dispatch.Draw(s.dev, dispatch.DrawJob{Program: s.writer, Target: tex, Clear: transparent}); err != nil {
		return err
	}
	return s.verify("texture", tex)
}

// checkCopy renders the mask into an attachment and copies it sample for
// sample into the texture that is verified.
func (s *state) checkCopy() error {
	attachment, err := s.newTarget("sample_mask_attachment")
	if err != nil {
		return err
	}
	defer attachment.Destroy()
	tex, err := s.newTarget("sample_mask_copy_dst")
	if err != nil {
		return err
	}
	defer tex.Destroy()

	if err := dispatch.Draw(s.dev, dispatch.DrawJob{Program: s.writer, Target: attachment, Clear: transparent}); err != nil {
		return err
	}
	entry, err := attachment.Entry(0, gputypes.TextureViewDimension2D)
	if err != nil {
		return err
	}
	err = dispatch.Draw(s.dev, dispatch.DrawJob{
		Program: s.copier,
		Entries: []gputypes.BindGroupEntry{entry},
		Target:  tex,
		Inputs:  []*fixture.Texture{attachment},
		Clear:   transparent,
	})
	if err != nil {
		return err
	}
	return s.verify("copy", tex)
}

// verify runs the checker over tex into the window and checks the whole
// window for green.
func (s *state) verify(name string, tex *fixture.Texture) error {
	entry, err := tex.Entry(0, gputypes.TextureViewDimension2D)
	if err != nil {
		return err
	}
	err = dispatch.Draw(s.dev, dispatch.DrawJob{
		Program: s.checker,
		Entries: []gputypes.BindGroupEntry{entry},
		Target:  s.window,
		Inputs:  []*fixture.Texture{tex},
		Clear:   transparent,
	})
	if err != nil {
		return err
	}
	pix, err := s.window.ReadRGBA8()
	if err != nil {
		return err
	}
	err = verify.CheckRectRGBA(name, pix, PatternSize, 0, 0, PatternSize, PatternSize, green)
	if err != nil && s.opts.DumpDir != "" {
		path, derr := Dump(s.opts.DumpDir, fmt.Sprintf("sample-mask-%d-%s.png", s.opts.Samples, name), pix, PatternSize, PatternSize)
		if derr != nil {
			conformance.Logger().Warn("samplemask: dump failed", "err", derr)
		} else {
			conformance.Logger().Info("samplemask: dumped failing window", "path", path)
		}
	}
	return err
}
