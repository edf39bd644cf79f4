package robustaccess

import (
	"fmt"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/fixture"
	"github.com/gogpu/conformance/internal/harness"
	"github.com/gogpu/conformance/internal/shader"
	"github.com/gogpu/conformance/internal/verify"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ReadBoundsConfig declares the read-bounds program.
var ReadBoundsConfig = conformance.Config{
	Name:                "read-bounds",
	RequireRobustAccess: true,
}

const (
	// sourceVec4s is the defined extent of the source buffer, half of the
	// 256 elements the shaders declare.
	sourceVec4s = 128

	// imageSize is the width and height of the source image.
	imageSize = 128
)

// readCase is one read-bounds sub-case. The result element for invocation
// (x, y) is 1.0 in every component when y < definedH and x < definedW and
// 0.0 otherwise.
type readCase struct {
	name     string
	source   shader.Binding
	fetch    string
	definedW int
	definedH int
}

var readCases = []readCase{
	{
		name:     "ubo",
		source:   shader.Binding{Binding: 1, Name: "data", Kind: shader.Uniform, Type: "array<vec4<f32>, 256>"},
		fetch:    "data[gid.x]",
		definedW: sourceVec4s,
		definedH: gridSize,
	},
	{
		name:     "ssbo",
		source:   shader.Binding{Binding: 1, Name: "data", Kind: shader.ReadOnlyStorage, Type: "array<vec4<f32>, 256>"},
		fetch:    "data[gid.x]",
		definedW: sourceVec4s,
		definedH: gridSize,
	},
	{
		name:     "texture",
		source:   shader.Binding{Binding: 1, Name: "tex", Kind: shader.Texture2D},
		fetch:    "textureLoad(tex, vec2<i32>(gid.xy), 0)",
		definedW: imageSize,
		definedH: imageSize,
	},
	{
		name:     "image",
		source:   shader.Binding{Binding: 1, Name: "img", Kind: shader.StorageImage2D, Format: gputypes.TextureFormatRGBA8Unorm},
		fetch:    "textureLoad(img, vec2<i32>(gid.xy))",
		definedW: imageSize,
		definedH: imageSize,
	},
	{
		name:   "atomic",
		source: shader.Binding{Binding: 1, Name: "counters", Kind: shader.Storage, Type: "array<atomic<u32>, 257>"},
		// Only the first counter is bound; every invocation increments one
		// past it.
		fetch: "vec4<f32>(f32(atomicAdd(&counters[gid.x + 1u], 1u)), 0.0, 0.0, 0.0)",
	},
}

func (c readCase) job() vec4Job {
	return vec4Job{
		label:  "read_bounds_" + c.name,
		source: c.source,
		stmts:  []string{resultIndex, "results[i] = " + c.fetch + ";"},
		count:  gridSize * gridSize,
		groups: [3]uint32{gridSize, gridSize, 1},
	}
}

// readBounds holds the source resources shared by all sub-cases.
type readBounds struct {
	dev     *device.Device
	data    *fixture.Buffer
	counter *fixture.Buffer
	image   *fixture.Texture
	// view serves both as sampled texture and as storage image.
	view hal.TextureView
}

func newReadBounds(dev *device.Device) (_ *readBounds, err error) {
	rb := &readBounds{dev: dev}
	defer func() {
		if err != nil {
			rb.destroy()
		}
	}()

	rb.data, err = fixture.NewBuffer(dev, fixture.BufferSpec{
		Label: "read_bounds_data",
		Size:  sourceVec4s * 16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageStorage,
	})
	if err != nil {
		return nil, err
	}
	if err = rb.data.Fill(fixture.Float32Bytes(fixture.Splat(4*sourceVec4s, 1))); err != nil {
		return nil, err
	}

	rb.counter, err = fixture.NewBuffer(dev, fixture.BufferSpec{
		Label: "read_bounds_counter",
		Size:  4,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return nil, err
	}
	if err = rb.counter.Fill(make([]byte, 4)); err != nil {
		return nil, err
	}

	rb.image, err = fixture.NewTexture(dev, fixture.TextureSpec{
		Label:  "read_bounds_image",
		Width:  imageSize,
		Height: imageSize,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
	})
	if err != nil {
		return nil, err
	}
	if err = rb.image.Upload(fixture.RGBA8FromFloat(fixture.Splat(4*imageSize*imageSize, 1))); err != nil {
		return nil, err
	}
	if rb.view, err = rb.image.View(gputypes.TextureViewDimension2D); err != nil {
		return nil, err
	}
	return rb, nil
}

func (rb *readBounds) destroy() {
	rb.image.Destroy()
	rb.counter.Destroy()
	rb.data.Destroy()
}

// entry returns the source binding for a sub-case.
func (rb *readBounds) entry(c readCase) (gputypes.BindGroupEntry, error) {
	switch c.name {
	case "ubo", "ssbo":
		return rb.data.Entry(1, 0, sourceVec4s*16), nil
	case "texture", "image":
		return fixture.ViewEntry(1, rb.view), nil
	case "atomic":
		return rb.counter.Entry(1, 0, 4), nil
	}
	return gputypes.BindGroupEntry{}, fmt.Errorf("read-bounds: unknown sub-case %q", c.name)
}

func (rb *readBounds) check(c readCase) error {
	source, err := rb.entry(c)
	if err != nil {
		return err
	}
	if c.name == "atomic" {
		// Out-of-bounds atomics may still land in the bound counter.
		if err := rb.counter.Fill(make([]byte, 4)); err != nil {
			return err
		}
	}
	results, err := c.job().run(rb.dev, source)
	if err != nil {
		return err
	}
	return verify.Vec4Grid(c.name, results, gridSize, gridSize, verify.Inside(c.definedW, c.definedH))
}

// RunReadBounds runs the read-bounds sub-cases: ubo, ssbo, texture, image
// and atomic.
func RunReadBounds(ctx *harness.Context) conformance.Result {
	rb, err := newReadBounds(ctx.Device)
	if err != nil {
		ctx.Report.Notef("setup: %v", err)
		return conformance.ResultFor(err)
	}
	defer rb.destroy()

	subs := make([]harness.Subtest, len(readCases))
	for i, c := range readCases {
		subs[i] = harness.Subtest{Name: c.name, Run: func() error { return rb.check(c) }}
	}
	return ctx.Subtests(subs)
}
