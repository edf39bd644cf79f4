package shader

import (
	"fmt"

	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Program is a linked pipeline with its module and layouts.
type Program struct {
	label    string
	dev      hal.Device
	bindings []Binding

	module         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	compute        hal.ComputePipeline
	render         hal.RenderPipeline
}

// RenderSpec describes a render program: a vertex and fragment entry point
// in one module drawing into a single color target.
type RenderSpec struct {
	Source        Source
	VertexEntry   string
	FragmentEntry string
	Format        gputypes.TextureFormat
	Samples       uint32
}

// NewComputeProgram compiles src and creates a compute pipeline on entry.
func NewComputeProgram(dev *device.Device, label string, src Source, entry string) (*Program, error) {
	p, err := newProgram(dev, label, src)
	if err != nil {
		return nil, err
	}
	pipeline, err := p.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: p.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     p.module,
			EntryPoint: entry,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, &LinkError{Label: label, Err: fmt.Errorf("create compute pipeline: %w", err)}
	}
	p.compute = pipeline
	return p, nil
}

// NewRenderProgram compiles spec.Source and creates a render pipeline with a
// triangle list and no vertex buffers.
func NewRenderProgram(dev *device.Device, label string, spec RenderSpec) (*Program, error) {
	samples := spec.Samples
	if samples == 0 {
		samples = 1
	}
	p, err := newProgram(dev, label, spec.Source)
	if err != nil {
		return nil, err
	}
	pipeline, err := p.dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: spec.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: spec.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{Format: spec.Format, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, &LinkError{Label: label, Err: fmt.Errorf("create render pipeline: %w", err)}
	}
	p.render = pipeline
	return p, nil
}

func newProgram(dev *device.Device, label string, src Source) (*Program, error) {
	words, err := Compile(label, src)
	if err != nil {
		return nil, err
	}
	hd := dev.HAL()
	p := &Program{label: label, dev: hd, bindings: src.Bindings}

	p.module, err = hd.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, &LinkError{Label: label, Err: fmt.Errorf("create shader module: %w", err)}
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(src.Bindings))
	for i, b := range src.Bindings {
		entries[i] = b.LayoutEntry()
	}
	p.bindLayout, err = hd.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: entries,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create bind group layout %s: %w", label, err)
	}

	p.pipelineLayout, err = hd.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create pipeline layout %s: %w", label, err)
	}
	return p, nil
}

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Bindings returns the declared bindings.
func (p *Program) Bindings() []Binding { return p.bindings }

// BindGroupLayout returns the layout of bind group 0.
func (p *Program) BindGroupLayout() hal.BindGroupLayout { return p.bindLayout }

// ComputePipeline returns the compute pipeline, or nil for render programs.
func (p *Program) ComputePipeline() hal.ComputePipeline { return p.compute }

// RenderPipeline returns the render pipeline, or nil for compute programs.
func (p *Program) RenderPipeline() hal.RenderPipeline { return p.render }

// Destroy releases the pipeline, layouts and module in reverse creation
// order. It is safe to call on a partially built program and more than once.
func (p *Program) Destroy() {
	if p == nil || p.dev == nil {
		return
	}
	if p.compute != nil {
		p.dev.DestroyComputePipeline(p.compute)
		p.compute = nil
	}
	if p.render != nil {
		p.dev.DestroyRenderPipeline(p.render)
		p.render = nil
	}
	if p.pipelineLayout != nil {
		p.dev.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.bindLayout != nil {
		p.dev.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		p.dev.DestroyShaderModule(p.module)
		p.module = nil
	}
}
