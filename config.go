package conformance

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Config is the declaration block of a program. The harness reads it before
// a device is opened.
type Config struct {
	// Name identifies the program in logs.
	Name string

	// RequireRobustAccess declares that the program exercises out-of-bounds
	// behavior and is meaningless on a device without robust buffer access.
	RequireRobustAccess bool

	// RequiredFeatures are requested when the device is opened.
	RequiredFeatures gputypes.Features

	// WindowWidth and WindowHeight size the render target of draw-based
	// programs. Compute-only programs leave them zero.
	WindowWidth  int
	WindowHeight int
}

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("conformance: invalid config")

// Validate checks the declaration block for obvious mistakes.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	if c.WindowWidth < 0 || c.WindowHeight < 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidConfig, c.WindowWidth, c.WindowHeight)
	}
	if (c.WindowWidth == 0) != (c.WindowHeight == 0) {
		return fmt.Errorf("%w: window %dx%d must set both dimensions", ErrInvalidConfig, c.WindowWidth, c.WindowHeight)
	}
	return nil
}
