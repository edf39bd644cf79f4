package shader

import (
	"fmt"

	"github.com/gogpu/conformance"
	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// LinkError reports a program that failed to compile. It is a setup error:
// the program under test could not be built, so nothing was verified.
type LinkError struct {
	Label string
	WGSL  string
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Label, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Compile renders src and compiles it to SPIR-V words.
func Compile(label string, src Source) ([]uint32, error) {
	wgsl, err := src.WGSL()
	if err != nil {
		return nil, &LinkError{Label: label, Err: err}
	}
	return CompileWGSL(label, wgsl)
}

// CompileWGSL compiles WGSL text to SPIR-V words.
func CompileWGSL(label, wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		conformance.Logger().Debug("shader: compile failed", "label", label, "wgsl", wgsl)
		return nil, &LinkError{Label: label, WGSL: wgsl, Err: err}
	}
	words, err := spirvWords(spirvBytes)
	if err != nil {
		return nil, &LinkError{Label: label, WGSL: wgsl, Err: err}
	}
	conformance.Logger().Debug("shader: compiled", "label", label, "words", len(words))
	return words, nil
}

// spirvWords converts little-endian SPIR-V bytes to words and checks the
// magic number.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("spir-v: invalid length %d", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("spir-v: bad magic 0x%08x", words[0])
	}
	return words, nil
}
