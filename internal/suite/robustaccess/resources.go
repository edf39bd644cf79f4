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
)

// ResourcesConfig declares the resources program.
var ResourcesConfig = conformance.Config{
	Name:                "resources",
	RequireRobustAccess: true,
}

// arrayLen is the number of resources in each indexed array.
const arrayLen = 2

var blockStruct = shader.Struct{Name: "Block", Fields: []shader.Field{{Name: "data", Type: "vec4<f32>"}}}

// resourceCase indexes an array of zero-filled resources with every
// invocation index. Each result must read as zero; alpha is the value the
// alpha component may read instead. Sampled reads of a format without an
// alpha channel return alpha 1.
type resourceCase struct {
	name   string
	source shader.Binding
	fetch  string
	alpha  float32
}

var resourceCases = []resourceCase{
	{
		name:   "ubo",
		source: shader.Binding{Binding: 1, Name: "arr", Kind: shader.Uniform, Type: fmt.Sprintf("array<Block, %d>", arrayLen)},
		fetch:  "arr[i].data",
	},
	{
		name:   "ssbo",
		source: shader.Binding{Binding: 1, Name: "arr", Kind: shader.Storage, Type: fmt.Sprintf("array<Block, %d>", arrayLen)},
		fetch:  "arr[i].data",
	},
	{
		name:   "texture",
		source: shader.Binding{Binding: 1, Name: "arr", Kind: shader.Texture2DArray},
		fetch:  "textureLoad(arr, vec2<i32>(0, 0), i32(i), 0)",
		alpha:  1,
	},
	{
		name:   "image",
		source: shader.Binding{Binding: 1, Name: "arr", Kind: shader.StorageImage2DArray, Format: gputypes.TextureFormatRGBA8Unorm},
		fetch:  "textureLoad(arr, vec2<i32>(0, 0), i32(i))",
	},
}

func (c resourceCase) job() vec4Job {
	return vec4Job{
		label:   "resources_" + c.name,
		structs: []shader.Struct{blockStruct},
		source:  c.source,
		stmts:   []string{resultIndex, "results[i] = " + c.fetch + ";"},
		count:   gridSize * gridSize,
		groups:  [3]uint32{gridSize, gridSize, 1},
	}
}

// check builds the zero-filled resource array for c, runs the program and
// verifies the results. The resources live for one check.
func (c resourceCase) check(dev *device.Device) error {
	var entry gputypes.BindGroupEntry
	switch c.source.Kind {
	case shader.Uniform, shader.Storage:
		usage := gputypes.BufferUsageUniform
		if c.source.Kind == shader.Storage {
			usage = gputypes.BufferUsageStorage
		}
		buf, err := fixture.NewBuffer(dev, fixture.BufferSpec{Label: "resources_" + c.name + "_arr", Size: 16 * arrayLen, Usage: usage})
		if err != nil {
			return err
		}
		defer buf.Destroy()
		if err := buf.Fill(make([]byte, 16*arrayLen)); err != nil {
			return err
		}
		entry = buf.Entry(1, 0, 0)
	default:
		format := gputypes.TextureFormatR8Unorm
		usage := gputypes.TextureUsageTextureBinding
		if c.source.Kind == shader.StorageImage2DArray {
			format = c.source.Format
			usage = gputypes.TextureUsageStorageBinding
		}
		tex, err := fixture.NewTexture(dev, fixture.TextureSpec{
			Label:  "resources_" + c.name + "_arr",
			Width:  1,
			Height: 1,
			Layers: arrayLen,
			Format: format,
			Usage:  usage,
		})
		if err != nil {
			return err
		}
		defer tex.Destroy()
		if err := tex.Upload(make([]byte, arrayLen*fixture.BytesPerPixel(format))); err != nil {
			return err
		}
		if entry, err = tex.Entry(1, c.source.ViewDimension()); err != nil {
			return err
		}
	}

	results, err := c.job().run(dev, entry)
	if err != nil {
		return err
	}
	return verify.Vec4AlphaAware(c.name, results, c.alpha)
}

// RunResources runs the resources sub-cases: ubo, ssbo, texture and image.
func RunResources(ctx *harness.Context) conformance.Result {
	subs := make([]harness.Subtest, len(resourceCases))
	for i, c := range resourceCases {
		subs[i] = harness.Subtest{Name: c.name, Run: func() error { return c.check(ctx.Device) }}
	}
	return ctx.Subtests(subs)
}
