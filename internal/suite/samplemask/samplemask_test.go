package samplemask

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSamples(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"4", 4, false},
		{"0x10", 16, false},
		{"010", 8, false},
		{"", 0, true},
		{"4x", 0, true},
		{"four", 0, true},
		{"-1", 0, true},
		{"0X4", 4, false},
		{"+4", 4, false},
		{"1_0", 0, true},
		{"0x_4", 0, true},
		{"0b100", 0, true},
		{"0B100", 0, true},
		{"0o4", 0, true},
		{"+0b1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseSamples(tt.arg)
			if tt.wantErr {
				if !errors.Is(err, ErrUsage) {
					t.Errorf("ParseSamples(%q) err = %v, want ErrUsage", tt.arg, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseSamples(%q) = %d, %v; want %d", tt.arg, got, err, tt.want)
			}
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		x, y uint32
		want uint32
	}{
		{0, 0, 0},
		{1, 0, 0x10204081},
		{0, 1, 0x01010101},
		{1, 1, 0x10204081 ^ 0x01010101},
		// Wraps at 32 bits.
		{16, 0, 0x02040810},
	}
	for _, tt := range tests {
		if got := Mask(tt.x, tt.y); got != tt.want {
			t.Errorf("Mask(%d, %d) = %#x, want %#x", tt.x, tt.y, got, tt.want)
		}
	}
}

// Over the pattern window the low four mask bits take every combination,
// so a 4-sample check sees each coverage value.
func TestMaskCoversAllFourSampleCombinations(t *testing.T) {
	seen := make(map[uint32]bool)
	for y := uint32(0); y < PatternSize; y++ {
		for x := uint32(0); x < PatternSize; x++ {
			seen[Mask(x, y)&0xf] = true
		}
	}
	if len(seen) != 16 {
		t.Errorf("saw %d of 16 four-sample masks", len(seen))
	}
}

func TestMagnify(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})

	dst := Magnify(src, 3)
	if dst.Bounds().Dx() != 6 || dst.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if got := dst.NRGBAAt(2, 2); got.G != 255 || got.R != 0 {
		t.Errorf("left block pixel = %v, want green", got)
	}
	if got := dst.NRGBAAt(3, 0); got.R != 255 || got.G != 0 {
		t.Errorf("right block pixel = %v, want red", got)
	}
}

func TestDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	pix := make([]byte, 4*2*2)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:], []byte{255, 0, 0, 255})
	}
	path, err := Dump(dir, "window.png", pix, 2, 2)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open dump: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2*dumpScale || b.Dy() != 2*dumpScale {
		t.Errorf("dump bounds = %v", b)
	}

	if _, err := Dump(dir, "short.png", pix[:4], 2, 2); err == nil {
		t.Error("Dump with short pixel data succeeded")
	}
}
