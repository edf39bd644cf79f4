// Package fixture builds the GPU resources a conformance program fills
// before dispatch and reads back afterwards.
//
// Every host access is scoped: uploads go through the queue before the next
// submit, and readbacks copy into a staging buffer that is destroyed before
// Read returns, on every path.
package fixture

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/conformance"
	"github.com/gogpu/conformance/internal/device"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferSpec describes a buffer to create.
type BufferSpec struct {
	Label string
	Size  uint64
	// Usage is combined with CopySrc|CopyDst, which fill and readback need.
	Usage gputypes.BufferUsage
}

// Buffer is a device buffer with a known size.
type Buffer struct {
	dev   *device.Device
	buf   hal.Buffer
	size  uint64
	label string
}

// NewBuffer creates a buffer. The contents are undefined until Fill.
func NewBuffer(dev *device.Device, spec BufferSpec) (*Buffer, error) {
	if spec.Size == 0 || spec.Size%4 != 0 {
		return nil, fmt.Errorf("create buffer %q: size %d must be a non-zero multiple of 4", spec.Label, spec.Size)
	}
	buf, err := dev.HAL().CreateBuffer(&hal.BufferDescriptor{
		Label: spec.Label,
		Size:  spec.Size,
		Usage: spec.Usage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", spec.Label, err)
	}
	conformance.Logger().Debug("fixture: buffer created", "label", spec.Label, "size", spec.Size)
	return &Buffer{dev: dev, buf: buf, size: spec.Size, label: spec.Label}, nil
}

// HAL returns the underlying hal buffer.
func (b *Buffer) HAL() hal.Buffer { return b.buf }

// Fill writes data at offset 0. data must not be larger than the buffer.
func (b *Buffer) Fill(data []byte) error {
	if uint64(len(data)) > b.size {
		return fmt.Errorf("fill buffer %q: %d bytes exceed size %d", b.label, len(data), b.size)
	}
	if err := b.dev.Queue().WriteBuffer(b.buf, 0, data); err != nil {
		return fmt.Errorf("fill buffer %q: %w", b.label, err)
	}
	return nil
}

// FillFloat32 fills the buffer with n float32 values produced by fn.
func (b *Buffer) FillFloat32(n int, fn func(i int) float32) error {
	return b.Fill(Float32Bytes(Float32s(n, fn)))
}

// FillInt32 fills the buffer with n int32 values produced by fn.
func (b *Buffer) FillInt32(n int, fn func(i int) int32) error {
	return b.Fill(Int32Bytes(Int32s(n, fn)))
}

// Entry returns a bind group entry exposing the window [offset, offset+size)
// of the buffer at binding. A size of 0 binds the rest of the buffer.
func (b *Buffer) Entry(binding uint32, offset, size uint64) gputypes.BindGroupEntry {
	if size == 0 {
		size = b.size - offset
	}
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: offset, Size: size},
	}
}

// Read copies the whole buffer back to host memory. It waits for all
// previously submitted work on the queue.
func (b *Buffer) Read() ([]byte, error) {
	hd := b.dev.HAL()
	staging, err := hd.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label + "_staging",
		Size:  b.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: create staging buffer: %w", b.label, err)
	}
	defer hd.DestroyBuffer(staging)

	encoder, err := hd.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.label + "_readback"})
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: create command encoder: %w", b.label, err)
	}
	if err := encoder.BeginEncoding(b.label + "_readback"); err != nil {
		return nil, fmt.Errorf("read buffer %q: begin encoding: %w", b.label, err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: b.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: end encoding: %w", b.label, err)
	}
	if err := b.dev.SubmitAndWait(cmdBuf); err != nil {
		return nil, fmt.Errorf("read buffer %q: %w", b.label, err)
	}

	out, err := readStaging(hd, staging, b.size)
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: %w", b.label, err)
	}
	return out, nil
}

// readStaging maps a MapRead staging buffer and copies its first size bytes
// out before unmapping it.
func readStaging(hd hal.Device, staging hal.Buffer, size uint64) ([]byte, error) {
	m, err := hd.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	if err := hd.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return out, nil
}

// Destroy releases the buffer. It is safe to call more than once.
func (b *Buffer) Destroy() {
	if b == nil || b.buf == nil {
		return
	}
	b.dev.HAL().DestroyBuffer(b.buf)
	b.buf = nil
}
