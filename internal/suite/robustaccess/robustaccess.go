// Package robustaccess holds the robust buffer access programs: reads past
// the defined extent of buffers and images return zero, out-of-bounds
// indexing into resource arrays returns zero, and storage writes past the
// bound range are discarded.
package robustaccess

import (
	"fmt"

	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/dispatch"
	"github.com/gogpu/conformance/internal/fixture"
	"github.com/gogpu/conformance/internal/shader"
	"github.com/gogpu/gputypes"
)

const (
	// gridSize is the width and height of the invocation grid.
	gridSize = 256

	// sentinel pre-fills result buffers so unwritten elements stand out.
	sentinel = -1.0

	entryPoint = "main"
)

// vec4Job is one compute program writing a vec4 per invocation into a
// results buffer at binding 0, reading a source resource at binding 1.
type vec4Job struct {
	label   string
	structs []shader.Struct
	source  shader.Binding
	stmts   []string
	count   int
	groups  [3]uint32
}

// src returns the program module.
func (j vec4Job) src() shader.Source {
	return shader.Source{
		Structs: j.structs,
		Bindings: []shader.Binding{
			{Binding: 0, Name: "results", Kind: shader.Storage, Type: fmt.Sprintf("array<vec4<f32>, %d>", j.count)},
			j.source,
		},
		Body: shader.ComputeMain([3]uint32{1, 1, 1}, j.stmts...),
	}
}

// run fills a fresh results buffer with the sentinel, dispatches the
// program and returns the results.
func (j vec4Job) run(dev *device.Device, source gputypes.BindGroupEntry) ([]float32, error) {
	results, err := fixture.NewBuffer(dev, fixture.BufferSpec{
		Label: j.label + "_results",
		Size:  uint64(16 * j.count),
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return nil, err
	}
	defer results.Destroy()
	if err := results.FillFloat32(4*j.count, func(int) float32 { return sentinel }); err != nil {
		return nil, err
	}

	prog, err := shader.NewComputeProgram(dev, j.label, j.src(), entryPoint)
	if err != nil {
		return nil, err
	}
	defer prog.Destroy()

	err = dispatch.Compute(dev, dispatch.ComputeJob{
		Program: prog,
		Entries: []gputypes.BindGroupEntry{results.Entry(0, 0, 0), source},
		Groups:  j.groups,
	})
	if err != nil {
		return nil, err
	}
	raw, err := results.Read()
	if err != nil {
		return nil, err
	}
	return fixture.BytesFloat32(raw), nil
}

// resultIndex is the statement every grid program starts with.
const resultIndex = "let i = 256u * gid.y + gid.x;"
