package robustaccess

import (
	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/conformance/internal/dispatch"
	"github.com/gogpu/conformance/internal/fixture"
	"github.com/gogpu/conformance/internal/harness"
	"github.com/gogpu/conformance/internal/shader"
	"github.com/gogpu/conformance/internal/verify"
	"github.com/gogpu/gputypes"
)

// SSBOWriteConfig declares the ssbo-write program.
var SSBOWriteConfig = conformance.Config{
	Name:                "ssbo-write",
	RequireRobustAccess: true,
}

const (
	// writeElems is the size of the buffer in int32 elements.
	writeElems = 1024
	// boundBytes is the bound window, 64 elements.
	boundBytes = 256

	writeWorkgroup = 64
	// writeInvocations covers indices 0..2047, far past the buffer.
	writeInvocations = 2048
	writeValue       = 1000000000
)

// ssboWriteSource writes writeValue at every global invocation index.
func ssboWriteSource() shader.Source {
	return shader.Source{
		Bindings: []shader.Binding{
			{Binding: 0, Name: "arr", Kind: shader.Storage, Type: "array<i32, 2048>"},
		},
		Body: shader.ComputeMain([3]uint32{writeWorkgroup, 1, 1}, "arr[gid.x] = 1000000000;"),
	}
}

// ssboWriteExpect is the expected buffer content: written inside the bound
// window, untouched past it.
func ssboWriteExpect(i int) int32 {
	if i < boundBytes/4 {
		return writeValue
	}
	return int32(i)
}

func checkSSBOWrite(dev *device.Device) error {
	buf, err := fixture.NewBuffer(dev, fixture.BufferSpec{
		Label: "ssbo_write_arr",
		Size:  4 * writeElems,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return err
	}
	defer buf.Destroy()
	if err := buf.FillInt32(writeElems, func(i int) int32 { return int32(i) }); err != nil {
		return err
	}

	prog, err := shader.NewComputeProgram(dev, "ssbo_write", ssboWriteSource(), entryPoint)
	if err != nil {
		return err
	}
	defer prog.Destroy()

	err = dispatch.Compute(dev, dispatch.ComputeJob{
		Program: prog,
		Entries: []gputypes.BindGroupEntry{buf.Entry(0, 0, boundBytes)},
		Groups:  [3]uint32{writeInvocations / writeWorkgroup, 1, 1},
	})
	if err != nil {
		return err
	}
	raw, err := buf.Read()
	if err != nil {
		return err
	}
	return verify.Int32s("ssbo-write", fixture.BytesInt32(raw), ssboWriteExpect)
}

// RunSSBOWrite runs the ssbo-write program. It has no sub-cases.
func RunSSBOWrite(ctx *harness.Context) conformance.Result {
	res, err := ctx.Check(func() error { return checkSSBOWrite(ctx.Device) })
	if err != nil {
		ctx.Report.Notef("ssbo-write: %v", err)
	}
	return res
}
