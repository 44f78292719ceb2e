package screen

import (
	"image"
	"log"
	"sync"
	"time"
)

// Guard wraps a Display with the panic switch: once the pointer is seen
// within Margin pixels of the top-left corner every further operation fails
// with ErrPanicSwitch. The switch latches until Reset. Guard never samples
// the pointer on its own; pauses are covered by polling Check from the
// driving goroutine.
type Guard struct {
	Display
	Margin int

	mu      sync.Mutex
	tripped chan struct{}
	fired   bool
}

// NewGuard wraps d. A negative margin is treated as zero.
func NewGuard(d Display, margin int) *Guard {
	if margin < 0 {
		margin = 0
	}
	return &Guard{
		Display: d,
		Margin:  margin,
		tripped: make(chan struct{}),
	}
}

// Tripped is closed when the switch fires.
func (g *Guard) Tripped() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// Engaged reports whether the switch has fired.
func (g *Guard) Engaged() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Reset re-arms the switch after an operator has recovered the desktop.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		g.fired = false
		g.tripped = make(chan struct{})
	}
}

func (g *Guard) trip(at Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return
	}
	g.fired = true
	close(g.tripped)
	log.Printf("[failsafe] pointer at %s, halting all input simulation", at)
}

func (g *Guard) inCorner(p Point) bool {
	return p.X <= g.Margin && p.Y <= g.Margin
}

// Check samples the pointer and trips the switch when it sits in the corner.
// A failed sample does not trip it. It must be called from the goroutine
// that drives the display.
func (g *Guard) Check() error {
	if g.Engaged() {
		return ErrPanicSwitch
	}
	p, err := g.Display.Location()
	if err != nil {
		return nil
	}
	if g.inCorner(p) {
		g.trip(p)
		return ErrPanicSwitch
	}
	return nil
}

// MoveTo checks the pointer before the move and, when the display reports
// intermediate positions, after every step of it.
func (g *Guard) MoveTo(p Point, d time.Duration) error {
	if err := g.Check(); err != nil {
		return err
	}
	if sm, ok := g.Display.(SteppedMover); ok {
		return sm.MoveToStepped(p, d, g.step)
	}
	return g.Display.MoveTo(p, d)
}

func (g *Guard) step(at Point) error {
	if g.Engaged() {
		return ErrPanicSwitch
	}
	if g.inCorner(at) {
		g.trip(at)
		return ErrPanicSwitch
	}
	return nil
}

func (g *Guard) Click(p Point) error {
	if err := g.Check(); err != nil {
		return err
	}
	return g.Display.Click(p)
}

func (g *Guard) Pixel(p Point) (Color, error) {
	if err := g.Check(); err != nil {
		return Color{}, err
	}
	return g.Display.Pixel(p)
}

func (g *Guard) Capture() (image.Image, error) {
	if g.Engaged() {
		return nil, ErrPanicSwitch
	}
	return g.Display.Capture()
}
