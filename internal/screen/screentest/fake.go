// Package screentest provides a scripted screen.Display for deterministic
// tests of the automation core.
package screentest

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"qiandao/internal/screen"
)

// Op names a recorded display operation.
type Op string

const (
	OpMove    Op = "move"
	OpClick   Op = "click"
	OpPixel   Op = "pixel"
	OpCapture Op = "capture"
)

// Call is one recorded operation.
type Call struct {
	Op    Op
	Point screen.Point
}

// Fake is a programmable display. Colors returns the next colour of each
// point's script on every Pixel call; the last entry repeats. Points without
// a script sample as black.
type Fake struct {
	Width, Height int

	// MoveErr and ClickErr, when set, decide the outcome of each call.
	// n counts prior calls of the same op at the same point.
	MoveErr  func(p screen.Point, n int) error
	ClickErr func(p screen.Point, n int) error
	PixelErr func(p screen.Point, n int) error
	// CaptureErr fails Capture when set.
	CaptureErr error
	// OnMove runs after every successful move; tests use it to advance a
	// virtual clock or to jump the pointer into the panic corner.
	OnMove func(p screen.Point, d time.Duration)
	// DuringMove runs halfway through every move, before the pointer lands;
	// tests use it to grab the pointer mid-glide.
	DuringMove func(p screen.Point)

	mu     sync.Mutex
	colors map[screen.Point][]screen.Color
	counts map[Call]int
	calls  []Call
	cursor screen.Point
}

// New returns a 1920x1080 fake with the pointer at the screen centre.
func New() *Fake {
	return &Fake{
		Width:  1920,
		Height: 1080,
		colors: make(map[screen.Point][]screen.Color),
		counts: make(map[Call]int),
		cursor: screen.Point{X: 960, Y: 540},
	}
}

// Script programs the colours sampled at p.
func (f *Fake) Script(p screen.Point, colors ...screen.Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.colors[p] = append([]screen.Color(nil), colors...)
}

// Warp moves the pointer without recording a call, as a human would.
func (f *Fake) Warp(p screen.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = p
}

// Calls returns a copy of the call log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times op ran at p.
func (f *Fake) Count(op Op, p screen.Point) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[Call{Op: op, Point: p}]
}

// Clicks returns the points clicked, in order.
func (f *Fake) Clicks() []screen.Point {
	var out []screen.Point
	for _, c := range f.Calls() {
		if c.Op == OpClick {
			out = append(out, c.Point)
		}
	}
	return out
}

func (f *Fake) record(op Op, p screen.Point) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := Call{Op: op, Point: p}
	n := f.counts[key]
	f.counts[key] = n + 1
	f.calls = append(f.calls, key)
	return n
}

func (f *Fake) Size() (int, int, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return 0, 0, errors.New("no display")
	}
	return f.Width, f.Height, nil
}

func (f *Fake) Location() (screen.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, nil
}

func (f *Fake) MoveTo(p screen.Point, d time.Duration) error {
	return f.MoveToStepped(p, d, nil)
}

// MoveToStepped reports the pointer to step once, halfway, when DuringMove
// has moved it.
func (f *Fake) MoveToStepped(p screen.Point, d time.Duration, step func(at screen.Point) error) error {
	n := f.record(OpMove, p)
	if f.MoveErr != nil {
		if err := f.MoveErr(p, n); err != nil {
			return err
		}
	}
	if f.DuringMove != nil {
		from, _ := f.Location()
		f.DuringMove(p)
		if at, _ := f.Location(); at != from && step != nil {
			if err := step(at); err != nil {
				return err
			}
		}
	}
	f.Warp(p)
	if f.OnMove != nil {
		f.OnMove(p, d)
	}
	return nil
}

func (f *Fake) Click(p screen.Point) error {
	n := f.record(OpClick, p)
	if f.ClickErr != nil {
		return f.ClickErr(p, n)
	}
	return nil
}

func (f *Fake) Pixel(p screen.Point) (screen.Color, error) {
	n := f.record(OpPixel, p)
	if f.PixelErr != nil {
		if err := f.PixelErr(p, n); err != nil {
			return screen.Color{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	script := f.colors[p]
	if len(script) == 0 {
		return screen.Color{}, nil
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n], nil
}

func (f *Fake) Capture() (image.Image, error) {
	f.record(OpCapture, screen.Point{})
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	return img, nil
}
