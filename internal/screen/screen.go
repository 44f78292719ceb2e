package screen

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"
)

// ErrPanicSwitch is returned by every operation once the pointer has been
// thrown into the panic corner. It is never retried.
var ErrPanicSwitch = errors.New("panic switch engaged: pointer moved to screen corner")

// Point is a pixel coordinate on the primary screen.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Color is a 3-channel RGB sample.
type Color struct {
	R, G, B uint8
}

// ParseColor accepts "#rrggbb" or "rrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

// Display is the capability the automation core drives. All methods act on
// process-wide input/display state and must be called from one goroutine.
type Display interface {
	Size() (width, height int, err error)
	Location() (Point, error)
	// MoveTo glides the pointer to p over d. A zero d jumps.
	MoveTo(p Point, d time.Duration) error
	Click(p Point) error
	Pixel(p Point) (Color, error)
	Capture() (image.Image, error)
}

// SteppedMover is a Display whose smooth moves report where the pointer
// actually is between steps. A position other than the last one commanded
// means someone else moved it; a non-nil error from step ends the move.
type SteppedMover interface {
	MoveToStepped(p Point, d time.Duration, step func(at Point) error) error
}
