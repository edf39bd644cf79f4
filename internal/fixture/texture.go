package fixture

import (
	"fmt"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the row pitch alignment texture-to-buffer copies require.
const copyPitchAlignment = 256

// TextureSpec describes a 2D texture or 2D texture array.
type TextureSpec struct {
	Label  string
	Width  uint32
	Height uint32
	// Layers > 1 creates an array texture.
	Layers uint32
	Format gputypes.TextureFormat
	// Samples of 0 or 1 create a single-sample texture.
	Samples uint32
	// Usage is combined with CopyDst for single-sample textures.
	Usage gputypes.TextureUsage
}

// Texture is a device texture and the views created from it.
type Texture struct {
	dev   *device.Device
	tex   hal.Texture
	views map[gputypes.TextureViewDimension]hal.TextureView
	spec  TextureSpec
}

// NewTexture creates a texture. The contents are undefined until Upload or
// until a render pass clears it.
func NewTexture(dev *device.Device, spec TextureSpec) (*Texture, error) {
	if spec.Width == 0 || spec.Height == 0 {
		return nil, fmt.Errorf("create texture %q: empty extent %dx%d", spec.Label, spec.Width, spec.Height)
	}
	if spec.Layers == 0 {
		spec.Layers = 1
	}
	if spec.Samples == 0 {
		spec.Samples = 1
	}
	if BytesPerPixel(spec.Format) == 0 {
		return nil, fmt.Errorf("create texture %q: unsupported format %v", spec.Label, spec.Format)
	}
	usage := spec.Usage
	if spec.Samples == 1 {
		usage |= gputypes.TextureUsageCopyDst
	}
	spec.Usage = usage

	tex, err := dev.HAL().CreateTexture(&hal.TextureDescriptor{
		Label:         spec.Label,
		Size:          hal.Extent3D{Width: spec.Width, Height: spec.Height, DepthOrArrayLayers: spec.Layers},
		MipLevelCount: 1,
		SampleCount:   spec.Samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        spec.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", spec.Label, err)
	}
	conformance.Logger().Debug("fixture: texture created",
		"label", spec.Label, "width", spec.Width, "height", spec.Height,
		"layers", spec.Layers, "samples", spec.Samples)
	return &Texture{dev: dev, tex: tex, spec: spec}, nil
}

// Spec returns the spec the texture was created with, with defaults applied.
func (t *Texture) Spec() TextureSpec { return t.spec }

// HAL returns the underlying hal texture.
func (t *Texture) HAL() hal.Texture { return t.tex }

// Upload writes tightly packed texel data covering every layer.
func (t *Texture) Upload(data []byte) error {
	bpp := BytesPerPixel(t.spec.Format)
	want := int(t.spec.Width) * int(t.spec.Height) * int(t.spec.Layers) * bpp
	if len(data) != want {
		return fmt.Errorf("upload texture %q: got %d bytes, want %d", t.spec.Label, len(data), want)
	}
	err := t.dev.Queue().WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.spec.Width * uint32(bpp),
			RowsPerImage: t.spec.Height,
		},
		&hal.Extent3D{Width: t.spec.Width, Height: t.spec.Height, DepthOrArrayLayers: t.spec.Layers},
	)
	if err != nil {
		return fmt.Errorf("upload texture %q: %w", t.spec.Label, err)
	}
	return nil
}

// View returns the texture's view of the given dimension, creating it on
// first use. Views are destroyed with the texture.
func (t *Texture) View(dim gputypes.TextureViewDimension) (hal.TextureView, error) {
	if v, ok := t.views[dim]; ok {
		return v, nil
	}
	desc := &hal.TextureViewDescriptor{
		Label:         t.spec.Label + "_view",
		Format:        t.spec.Format,
		Dimension:     dim,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
		// A 2D view sees layer 0 only.
		ArrayLayerCount: 1,
	}
	if dim == gputypes.TextureViewDimension2DArray {
		desc.ArrayLayerCount = t.spec.Layers
	}
	view, err := t.dev.HAL().CreateTextureView(t.tex, desc)
	if err != nil {
		return nil, fmt.Errorf("create view of %q: %w", t.spec.Label, err)
	}
	if t.views == nil {
		t.views = make(map[gputypes.TextureViewDimension]hal.TextureView)
	}
	t.views[dim] = view
	return view, nil
}

// Entry returns a bind group entry for the texture's view of the given
// dimension at binding.
func (t *Texture) Entry(binding uint32, dim gputypes.TextureViewDimension) (gputypes.BindGroupEntry, error) {
	view, err := t.View(dim)
	if err != nil {
		return gputypes.BindGroupEntry{}, err
	}
	return ViewEntry(binding, view), nil
}

// ViewEntry returns a bind group entry for an existing view.
func ViewEntry(binding uint32, view hal.TextureView) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
	}
}

// ReadRGBA8 copies layer 0 of a single-sample RGBA8 texture back to host
// memory as tightly packed rows. It waits for all previously submitted work.
func (t *Texture) ReadRGBA8() ([]byte, error) {
	if t.spec.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("read texture %q: format %v is not RGBA8Unorm", t.spec.Label, t.spec.Format)
	}
	if t.spec.Samples != 1 {
		return nil, fmt.Errorf("read texture %q: cannot read %d-sample texture", t.spec.Label, t.spec.Samples)
	}
	if t.spec.Usage&gputypes.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("read texture %q: created without CopySrc usage", t.spec.Label)
	}
	w, h := t.spec.Width, t.spec.Height
	pitch := AlignedPitch(w * 4)

	hd := t.dev.HAL()
	staging, err := hd.CreateBuffer(&hal.BufferDescriptor{
		Label: t.spec.Label + "_staging",
		Size:  uint64(pitch) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("read texture %q: create staging buffer: %w", t.spec.Label, err)
	}
	defer hd.DestroyBuffer(staging)

	encoder, err := hd.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: t.spec.Label + "_readback"})
	if err != nil {
		return nil, fmt.Errorf("read texture %q: create command encoder: %w", t.spec.Label, err)
	}
	if err := encoder.BeginEncoding(t.spec.Label + "_readback"); err != nil {
		return nil, fmt.Errorf("read texture %q: begin encoding: %w", t.spec.Label, err)
	}

	prev := t.restingUsage()
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage:   hal.TextureUsageTransition{OldUsage: prev, NewUsage: gputypes.TextureUsageCopySrc},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage:   hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: prev},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("read texture %q: end encoding: %w", t.spec.Label, err)
	}
	if err := t.dev.SubmitAndWait(cmdBuf); err != nil {
		return nil, fmt.Errorf("read texture %q: %w", t.spec.Label, err)
	}

	padded, err := readStaging(hd, staging, uint64(pitch)*uint64(h))
	if err != nil {
		return nil, fmt.Errorf("read texture %q: %w", t.spec.Label, err)
	}
	return StripRowPadding(padded, int(w*4), int(pitch), int(h)), nil
}

// restingUsage is the usage a texture is left in between passes.
func (t *Texture) restingUsage() gputypes.TextureUsage {
	switch {
	case t.spec.Usage&gputypes.TextureUsageRenderAttachment != 0:
		return gputypes.TextureUsageRenderAttachment
	case t.spec.Usage&gputypes.TextureUsageStorageBinding != 0:
		return gputypes.TextureUsageStorageBinding
	default:
		return gputypes.TextureUsageTextureBinding
	}
}

// Destroy releases the texture and its views. It is safe to call more than once.
func (t *Texture) Destroy() {
	if t == nil || t.tex == nil {
		return
	}
	hd := t.dev.HAL()
	for _, v := range t.views {
		hd.DestroyTextureView(v)
	}
	t.views = nil
	hd.DestroyTexture(t.tex)
	t.tex = nil
}

// BytesPerPixel returns the texel size of the formats fixtures support, or 0.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm:
		return 4
	case gputypes.TextureFormatR32Float:
		return 4
	case gputypes.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

// AlignedPitch rounds a row size up to the copy pitch alignment.
func AlignedPitch(rowBytes uint32) uint32 {
	return (rowBytes + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// StripRowPadding returns rows of rowBytes taken every pitch bytes from src.
func StripRowPadding(src []byte, rowBytes, pitch, rows int) []byte {
	if rowBytes == pitch {
		return src[:rowBytes*rows]
	}
	out := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], src[y*pitch:y*pitch+rowBytes])
	}
	return out
}
