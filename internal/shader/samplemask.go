package shader

import (
	"fmt"
	"strings"
	"text/template"
)

// FullscreenVertex is a vertex entry point "vs_main" that emits one
// triangle covering the whole viewport from vertex_index 0..2.
const FullscreenVertex = `@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let x = f32((vi << 1u) & 2u) * 2.0 - 1.0;
    let y = f32(vi & 2u) * 2.0 - 1.0;
    return vec4<f32>(x, y, 0.0, 1.0);
}`

// patternMaskFn computes the per-fragment coverage pattern from the
// fragment's pixel coordinates. The multiplications wrap at 32 bits.
const patternMaskFn = `fn pattern_mask(pos: vec4<f32>) -> u32 {
    let x = u32(pos.x);
    let y = u32(pos.y);
    return (x * 0x10204081u) ^ (y * 0x01010101u);
}`

// MaskWriter selects the fragment program that paints green. With WriteMask
// set it also writes the pattern to the sample mask output.
type MaskWriter struct {
	WriteMask bool
}

// Source returns the render module for the writer.
func (w MaskWriter) Source() Source {
	if !w.WriteMask {
		return Source{Body: FullscreenVertex + `

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 1.0, 0.0, 1.0);
}`}
	}
	return Source{
		Structs: []Struct{{
			Name: "MaskedOutput",
			Fields: []Field{
				{Attr: "@location(0)", Name: "color", Type: "vec4<f32>"},
				{Attr: "@builtin(sample_mask)", Name: "mask", Type: "u32"},
			},
		}},
		Body: FullscreenVertex + "\n\n" + patternMaskFn + `

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> MaskedOutput {
    var out: MaskedOutput;
    out.color = vec4<f32>(0.0, 1.0, 0.0, 1.0);
    out.mask = pattern_mask(pos);
    return out;
}`,
	}
}

// MaskChecker selects the fragment program that reads every sample of the
// source texture at binding 0 and paints green when sample s is green
// exactly where bit s of the pattern is set and transparent black
// elsewhere, red otherwise.
type MaskChecker struct {
	// Multisampled reads a texture_multisampled_2d; otherwise texture_2d.
	Multisampled bool
	// Samples is the number of samples to check. 0 checks one sample
	// against a mask of 1.
	Samples int
}

// sample_ok compares component-wise; naga's SPIR-V backend has no
// relational all().
var checkerTemplate = template.Must(template.New("checker").Parse(
	`fn sample_ok(c: vec4<f32>, bit: u32) -> bool {
    if (bit == 1u) {
        return c.x == 0.0 && c.y == 1.0 && c.z == 0.0 && c.w == 1.0;
    }
    return c.x == 0.0 && c.y == 0.0 && c.z == 0.0 && c.w == 0.0;
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    let coord = vec2<i32>(pos.xy);
    let mask = {{.Mask}};
    var ok = true;
{{range .Samples}}    ok = ok && sample_ok(textureLoad(src, coord, {{.}}), (mask >> {{.}}u) & 1u);
{{end}}    if (ok) {
        return vec4<f32>(0.0, 1.0, 0.0, 1.0);
    }
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}`))

// Source returns the render module for the checker. The per-sample checks
// are unrolled.
func (c MaskChecker) Source() (Source, error) {
	if c.Samples < 0 {
		return Source{}, fmt.Errorf("mask checker: negative sample count %d", c.Samples)
	}
	if c.Multisampled && c.Samples < 2 {
		return Source{}, fmt.Errorf("mask checker: multisampled source with %d samples", c.Samples)
	}
	n := c.Samples
	mask := "pattern_mask(pos)"
	if n == 0 {
		n = 1
		mask = "1u"
	}
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i
	}

	var sb strings.Builder
	if err := checkerTemplate.Execute(&sb, struct {
		Mask    string
		Samples []int
	}{mask, samples}); err != nil {
		return Source{}, fmt.Errorf("render mask checker: %w", err)
	}

	kind := Texture2D
	if c.Multisampled {
		kind = TextureMultisampled2D
	}
	return Source{
		Bindings: []Binding{{Binding: 0, Name: "src", Kind: kind, Stage: StageFragment}},
		Body:     FullscreenVertex + "\n\n" + patternMaskFn + "\n\n" + sb.String(),
	}, nil
}

// SampleCopy selects the per-sample copy program: every sample of the
// target receives the same sample of the source texture at binding 0.
type SampleCopy struct {
	Multisampled bool
}

// Source returns the render module for the copy pass.
func (c SampleCopy) Source() Source {
	if !c.Multisampled {
		return Source{
			Bindings: []Binding{{Binding: 0, Name: "src", Kind: Texture2D, Stage: StageFragment}},
			Body: FullscreenVertex + `

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(src, vec2<i32>(pos.xy), 0);
}`,
		}
	}
	return Source{
		Bindings: []Binding{{Binding: 0, Name: "src", Kind: TextureMultisampled2D, Stage: StageFragment}},
		Body: FullscreenVertex + `

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>, @builtin(sample_index) s: u32) -> @location(0) vec4<f32> {
    return textureLoad(src, vec2<i32>(pos.xy), i32(s));
}`,
	}
}
