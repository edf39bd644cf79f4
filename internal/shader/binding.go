package shader

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kind is the kind of resource a binding declares.
type Kind int

const (
	// Uniform is a uniform buffer.
	Uniform Kind = iota
	// Storage is a read-write storage buffer.
	Storage
	// ReadOnlyStorage is a read-only storage buffer.
	ReadOnlyStorage
	// Texture2D is a sampled 2D texture read with textureLoad.
	Texture2D
	// Texture2DArray is a sampled 2D texture array.
	Texture2DArray
	// TextureMultisampled2D is a multisampled 2D texture.
	TextureMultisampled2D
	// StorageImage2D is a read-only 2D storage texture.
	StorageImage2D
	// StorageImage2DArray is a read-only 2D storage texture array.
	StorageImage2DArray
)

var kindNames = [...]string{
	Uniform:               "uniform",
	Storage:               "storage",
	ReadOnlyStorage:       "read-only storage",
	Texture2D:             "texture 2d",
	Texture2DArray:        "texture 2d array",
	TextureMultisampled2D: "multisampled texture 2d",
	StorageImage2D:        "storage image 2d",
	StorageImage2DArray:   "storage image 2d array",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBuffer reports whether the kind is backed by a buffer.
func (k Kind) IsBuffer() bool {
	return k == Uniform || k == Storage || k == ReadOnlyStorage
}

// Stage is the shader stage a binding is visible to.
type Stage int

const (
	// StageCompute makes a binding visible to compute shaders.
	StageCompute Stage = iota
	// StageFragment makes a binding visible to fragment shaders.
	StageFragment
)

// Binding declares one resource in bind group 0. The same value produces
// the WGSL declaration and the bind group layout entry.
type Binding struct {
	Binding uint32
	Name    string
	Kind    Kind
	// Type is the WGSL store type for buffers, e.g. "array<vec4<f32>, 256>".
	// Textures ignore it.
	Type string
	// Format is the texel format of storage images.
	Format gputypes.TextureFormat
	Stage  Stage
}

// WGSL returns the module-scope declaration of the binding.
func (b Binding) WGSL() (string, error) {
	if b.Name == "" {
		return "", fmt.Errorf("binding %d: empty name", b.Binding)
	}
	if b.Kind.IsBuffer() && b.Type == "" {
		return "", fmt.Errorf("binding %d (%s): %s buffer without a type", b.Binding, b.Name, b.Kind)
	}
	prefix := fmt.Sprintf("@group(0) @binding(%d) var", b.Binding)
	switch b.Kind {
	case Uniform:
		return fmt.Sprintf("%s<uniform> %s: %s;", prefix, b.Name, b.Type), nil
	case Storage:
		return fmt.Sprintf("%s<storage, read_write> %s: %s;", prefix, b.Name, b.Type), nil
	case ReadOnlyStorage:
		return fmt.Sprintf("%s<storage, read> %s: %s;", prefix, b.Name, b.Type), nil
	case Texture2D:
		return fmt.Sprintf("%s %s: texture_2d<f32>;", prefix, b.Name), nil
	case Texture2DArray:
		return fmt.Sprintf("%s %s: texture_2d_array<f32>;", prefix, b.Name), nil
	case TextureMultisampled2D:
		return fmt.Sprintf("%s %s: texture_multisampled_2d<f32>;", prefix, b.Name), nil
	case StorageImage2D, StorageImage2DArray:
		format, ok := storageFormats[b.Format]
		if !ok {
			return "", fmt.Errorf("binding %d (%s): unsupported storage format %v", b.Binding, b.Name, b.Format)
		}
		typ := "texture_storage_2d"
		if b.Kind == StorageImage2DArray {
			typ = "texture_storage_2d_array"
		}
		return fmt.Sprintf("%s %s: %s<%s, read>;", prefix, b.Name, typ, format), nil
	}
	return "", fmt.Errorf("binding %d (%s): unknown kind %v", b.Binding, b.Name, b.Kind)
}

// storageFormats maps texel formats to WGSL storage texel format names.
var storageFormats = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatRGBA8Unorm:  "rgba8unorm",
	gputypes.TextureFormatR32Float:    "r32float",
	gputypes.TextureFormatRGBA32Float: "rgba32float",
}

// LayoutEntry returns the bind group layout entry matching WGSL.
func (b Binding) LayoutEntry() gputypes.BindGroupLayoutEntry {
	entry := gputypes.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	if b.Stage == StageFragment {
		entry.Visibility = gputypes.ShaderStageFragment
	}
	switch b.Kind {
	case Uniform:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case Storage:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case ReadOnlyStorage:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	case Texture2D:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case Texture2DArray:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2DArray,
		}
	case TextureMultisampled2D:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
			Multisampled:  true,
		}
	case StorageImage2D:
		entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessReadOnly,
			Format:        b.Format,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case StorageImage2DArray:
		entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessReadOnly,
			Format:        b.Format,
			ViewDimension: gputypes.TextureViewDimension2DArray,
		}
	}
	return entry
}

// ViewDimension returns the texture view dimension a texture binding
// expects. Buffers return TextureViewDimension2D.
func (b Binding) ViewDimension() gputypes.TextureViewDimension {
	switch b.Kind {
	case Texture2DArray, StorageImage2DArray:
		return gputypes.TextureViewDimension2DArray
	}
	return gputypes.TextureViewDimension2D
}
