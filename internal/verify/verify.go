// Package verify compares readback data against expected-value functions
// with zero tolerance and summarizes mismatches.
package verify

import (
	"fmt"
	"strings"

	"github.com/gogpu/conformance"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxReported bounds the mismatches kept for the error message.
const maxReported = 4

// Mismatch is one element that differs from its expected value.
type Mismatch struct {
	Where string
	Got   string
	Want  string
}

// MismatchError reports readback data that differs from the expected
// values. It matches conformance.ErrMismatch with errors.Is.
type MismatchError struct {
	What  string
	Count int
	Total int
	First []Mismatch
}

var printer = message.NewPrinter(language.English)

func (e *MismatchError) Error() string {
	var sb strings.Builder
	sb.WriteString(printer.Sprintf("%s: %d of %d elements differ", e.What, e.Count, e.Total))
	for i, m := range e.First {
		if i == 0 {
			sb.WriteString("; ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s got %s want %s", m.Where, m.Got, m.Want)
	}
	if e.Count > len(e.First) {
		sb.WriteString(", ...")
	}
	return sb.String()
}

// Is reports whether target is conformance.ErrMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == conformance.ErrMismatch
}

// collector accumulates mismatches.
type collector struct {
	err MismatchError
}

func newCollector(what string, total int) *collector {
	return &collector{err: MismatchError{What: what, Total: total}}
}

func (c *collector) add(where, got, want string) {
	c.err.Count++
	if len(c.err.First) < maxReported {
		c.err.First = append(c.err.First, Mismatch{Where: where, Got: got, Want: want})
	}
}

func (c *collector) result() error {
	if c.err.Count == 0 {
		return nil
	}
	err := c.err
	return &err
}

// Inside returns the expected-value function of a region read through a
// resource whose defined extent is width columns by height rows: 1.0 inside,
// 0.0 outside.
func Inside(width, height int) func(row, col int) float32 {
	return func(row, col int) float32 {
		if row < height && col < width {
			return 1
		}
		return 0
	}
}

// Vec4Grid checks a width*height grid of vec4 elements stored row-major.
// All four components of element (row, col) must equal expect(row, col).
func Vec4Grid(what string, data []float32, width, height int, expect func(row, col int) float32) error {
	n := width * height
	if len(data) != 4*n {
		return fmt.Errorf("%s: got %d floats, want %d", what, len(data), 4*n)
	}
	c := newCollector(what, n)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			want := expect(row, col)
			v := data[4*(row*width+col):][:4]
			if v[0] != want || v[1] != want || v[2] != want || v[3] != want {
				c.add(fmt.Sprintf("(row %d, col %d)", row, col), vec4String(v), vec4String([]float32{want, want, want, want}))
			}
		}
	}
	return c.result()
}

// Vec4AlphaAware checks vec4 elements that must read as zero. Each component
// must be 0.0, except that the alpha component may instead equal alpha.
func Vec4AlphaAware(what string, data []float32, alpha float32) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("%s: %d floats is not a whole number of vec4", what, len(data))
	}
	n := len(data) / 4
	c := newCollector(what, n)
	for i := 0; i < n; i++ {
		v := data[4*i:][:4]
		if v[0] != 0 || v[1] != 0 || v[2] != 0 || (v[3] != 0 && v[3] != alpha) {
			c.add(fmt.Sprintf("[%d]", i), vec4String(v), fmt.Sprintf("(0, 0, 0, 0 or %g)", alpha))
		}
	}
	return c.result()
}

// Int32s checks that data[i] == expect(i) for every i.
func Int32s(what string, data []int32, expect func(i int) int32) error {
	c := newCollector(what, len(data))
	for i, v := range data {
		if want := expect(i); v != want {
			c.add(fmt.Sprintf("[%d]", i), fmt.Sprint(v), fmt.Sprint(want))
		}
	}
	return c.result()
}

// CheckRectRGBA checks that every pixel of the w*h rectangle at (x, y) in
// an RGBA8 image stride pixels wide equals want.
func CheckRectRGBA(what string, pix []byte, stride, x, y, w, h int, want [4]uint8) error {
	if x < 0 || y < 0 || x+w > stride || (y+h)*stride*4 > len(pix) {
		return fmt.Errorf("%s: rectangle (%d,%d %dx%d) outside %d-pixel-wide image of %d bytes",
			what, x, y, w, h, stride, len(pix))
	}
	c := newCollector(what, w*h)
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			p := pix[4*(py*stride+px):][:4]
			if p[0] != want[0] || p[1] != want[1] || p[2] != want[2] || p[3] != want[3] {
				c.add(fmt.Sprintf("(%d, %d)", px, py), rgbaString(p), rgbaString(want[:]))
			}
		}
	}
	return c.result()
}

func vec4String(v []float32) string {
	return fmt.Sprintf("(%g, %g, %g, %g)", v[0], v[1], v[2], v[3])
}

func rgbaString(p []byte) string {
	return fmt.Sprintf("(%d, %d, %d, %d)", p[0], p[1], p[2], p[3])
}
