package fixture

import (
	"encoding/binary"
	"math"
)

// Float32s returns n values produced by fn.
func Float32s(n int, fn func(i int) float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

// Int32s returns n values produced by fn.
func Int32s(n int, fn func(i int) int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

// Splat returns n copies of v.
func Splat(n int, v float32) []float32 {
	return Float32s(n, func(int) float32 { return v })
}

// Float32Bytes encodes vals little-endian, the layout the GPU reads.
func Float32Bytes(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Int32Bytes encodes vals little-endian.
func Int32Bytes(vals []int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v)) //nolint:gosec // two's complement reinterpretation
	}
	return out
}

// BytesFloat32 decodes little-endian float32 values. Trailing bytes that do
// not form a whole value are ignored.
func BytesFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// BytesInt32 decodes little-endian int32 values.
func BytesInt32(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:])) //nolint:gosec // two's complement reinterpretation
	}
	return out
}

// RGBA8FromFloat converts normalized floats to unorm8 texels, clamping to
// [0, 1] and rounding to nearest (1.0 becomes 255).
func RGBA8FromFloat(vals []float32) []byte {
	out := make([]byte, len(vals))
	for i, v := range vals {
		c := math.Min(math.Max(float64(v), 0), 1)
		out[i] = uint8(math.Round(c * 255))
	}
	return out
}
