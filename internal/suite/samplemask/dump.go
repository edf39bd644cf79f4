package samplemask

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// dumpScale magnifies dumped windows so single-pixel defects are visible.
const dumpScale = 4

// Dump writes an RGBA8 window magnified dumpScale times with nearest
// neighbor sampling to dir/name as PNG and returns the path.
func Dump(dir, name string, pix []byte, width, height int) (string, error) {
	if len(pix) != 4*width*height {
		return "", fmt.Errorf("dump %s: got %d bytes for %dx%d", name, len(pix), width, height)
	}
	src := &image.NRGBA{Pix: pix, Stride: 4 * width, Rect: image.Rect(0, 0, width, height)}
	dst := Magnify(src, dumpScale)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dump %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("dump %s: %w", name, err)
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return "", fmt.Errorf("dump %s: encode: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("dump %s: %w", name, err)
	}
	return path, nil
}

// Magnify scales src by an integer factor without filtering.
func Magnify(src image.Image, factor int) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
