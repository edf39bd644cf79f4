// Package dispatch records one compute dispatch or one full-viewport draw,
// submits it and waits for completion. Each call is synchronous from the
// caller's view: when it returns, the results are visible to readback.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/fixture"
	"github.com/gogpu/conformance/internal/shader"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoPipeline is returned when a job's program lacks the pipeline kind
// the job needs.
var ErrNoPipeline = errors.New("dispatch: program has no matching pipeline")

// ComputeJob is a single compute dispatch.
type ComputeJob struct {
	Program *shader.Program
	Entries []gputypes.BindGroupEntry
	// Groups is the workgroup grid. Zero components count as 1.
	Groups [3]uint32
}

// DrawJob is a single draw over the whole target.
type DrawJob struct {
	Program *shader.Program
	Entries []gputypes.BindGroupEntry
	Target  *fixture.Texture
	// Inputs are textures rendered by an earlier pass and sampled by this
	// one. They are transitioned to TextureBinding for the pass.
	Inputs []*fixture.Texture
	Clear  gputypes.Color
	// Vertices defaults to 3, one full-screen triangle.
	Vertices uint32
}

// Compute creates the bind group, encodes one compute pass, submits and
// waits. The bind group is released before returning.
func Compute(dev *device.Device, job ComputeJob) error {
	if job.Program == nil || job.Program.ComputePipeline() == nil {
		return ErrNoPipeline
	}
	groups := job.Groups
	for i := range groups {
		if groups[i] == 0 {
			groups[i] = 1
		}
	}
	label := job.Program.Label()
	hd := dev.HAL()

	bg, err := bindGroup(hd, job.Program, job.Entries)
	if err != nil {
		return err
	}
	if bg != nil {
		defer hd.DestroyBindGroup(bg)
	}

	encoder, err := hd.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label + "_pass"})
	pass.SetPipeline(job.Program.ComputePipeline())
	if bg != nil {
		pass.SetBindGroup(0, bg, nil)
	}
	pass.Dispatch(groups[0], groups[1], groups[2])
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	conformance.Logger().Debug("dispatch: compute",
		"program", label, "x", groups[0], "y", groups[1], "z", groups[2])
	if err := dev.SubmitAndWait(cmdBuf); err != nil {
		return fmt.Errorf("dispatch %s: %w", label, err)
	}
	return nil
}

// Draw clears the target to job.Clear, draws job.Vertices vertices with no
// vertex buffers, submits and waits.
func Draw(dev *device.Device, job DrawJob) error {
	if job.Program == nil || job.Program.RenderPipeline() == nil {
		return ErrNoPipeline
	}
	if job.Target == nil {
		return errors.New("dispatch: draw without a target")
	}
	vertices := job.Vertices
	if vertices == 0 {
		vertices = 3
	}
	label := job.Program.Label()
	hd := dev.HAL()

	view, err := job.Target.View(gputypes.TextureViewDimension2D)
	if err != nil {
		return err
	}
	bg, err := bindGroup(hd, job.Program, job.Entries)
	if err != nil {
		return err
	}
	if bg != nil {
		defer hd.DestroyBindGroup(bg)
	}

	encoder, err := hd.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	if len(job.Inputs) > 0 {
		encoder.TransitionTextures(inputBarriers(job.Inputs,
			gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageTextureBinding))
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: job.Clear,
		}},
	})
	rp.SetPipeline(job.Program.RenderPipeline())
	if bg != nil {
		rp.SetBindGroup(0, bg, nil)
	}
	rp.Draw(vertices, 1, 0, 0)
	rp.End()

	if len(job.Inputs) > 0 {
		encoder.TransitionTextures(inputBarriers(job.Inputs,
			gputypes.TextureUsageTextureBinding, gputypes.TextureUsageRenderAttachment))
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	spec := job.Target.Spec()
	conformance.Logger().Debug("dispatch: draw",
		"program", label, "target", spec.Label, "samples", spec.Samples, "vertices", vertices)
	if err := dev.SubmitAndWait(cmdBuf); err != nil {
		return fmt.Errorf("draw %s: %w", label, err)
	}
	return nil
}

// bindGroup creates bind group 0 for the program, or returns nil when the
// program declares no bindings.
func bindGroup(hd hal.Device, p *shader.Program, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	if len(p.Bindings()) == 0 {
		return nil, nil //nolint:nilnil // no bindings is a valid empty group
	}
	if err := checkEntries(p.Bindings(), entries); err != nil {
		return nil, fmt.Errorf("bind group %s: %w", p.Label(), err)
	}
	bg, err := hd.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.Label() + "_bg",
		Layout:  p.BindGroupLayout(),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", p.Label(), err)
	}
	return bg, nil
}

// checkEntries verifies that every declared binding has exactly one entry.
func checkEntries(bindings []shader.Binding, entries []gputypes.BindGroupEntry) error {
	got := make(map[uint32]int, len(entries))
	for _, e := range entries {
		got[e.Binding]++
	}
	for _, b := range bindings {
		switch got[b.Binding] {
		case 0:
			return fmt.Errorf("binding %d (%s) has no resource", b.Binding, b.Name)
		case 1:
		default:
			return fmt.Errorf("binding %d (%s) has %d resources", b.Binding, b.Name, got[b.Binding])
		}
		delete(got, b.Binding)
	}
	for binding := range got {
		return fmt.Errorf("resource for undeclared binding %d", binding)
	}
	return nil
}

func inputBarriers(inputs []*fixture.Texture, from, to gputypes.TextureUsage) []hal.TextureBarrier {
	barriers := make([]hal.TextureBarrier, len(inputs))
	for i, t := range inputs {
		barriers[i] = hal.TextureBarrier{
			Texture: t.HAL(),
			Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
		}
	}
	return barriers
}
