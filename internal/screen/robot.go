package screen

import (
	"fmt"
	"image"
	"time"

	"github.com/go-vgo/robotgo"
)

// moveStep is the interval between intermediate pointer positions of a
// smooth move.
const moveStep = 10 * time.Millisecond

// Robot drives the real display through robotgo.
type Robot struct{}

// NewRobot returns the real-display adapter.
func NewRobot() *Robot {
	return &Robot{}
}

func (r *Robot) Size() (w, h int, err error) {
	err = guarded("size", func() {
		w, h = robotgo.GetScreenSize()
	})
	if err == nil && (w <= 0 || h <= 0) {
		err = fmt.Errorf("size: no display available")
	}
	return w, h, err
}

func (r *Robot) Location() (p Point, err error) {
	err = guarded("location", func() {
		p.X, p.Y = robotgo.Location()
	})
	return p, err
}

func (r *Robot) MoveTo(p Point, d time.Duration) error {
	return r.MoveToStepped(p, d, nil)
}

func (r *Robot) MoveToStepped(p Point, d time.Duration, step func(at Point) error) error {
	var stepErr error
	err := guarded("move", func() {
		steps := int(d / moveStep)
		if steps <= 1 {
			robotgo.Move(p.X, p.Y)
			return
		}
		sx, sy := robotgo.Location()
		last := Point{X: sx, Y: sy}
		for i := 1; i <= steps; i++ {
			if step != nil {
				x, y := robotgo.Location()
				if at := (Point{X: x, Y: y}); at != last {
					if stepErr = step(at); stepErr != nil {
						return
					}
				}
			}
			last = Point{X: sx + (p.X-sx)*i/steps, Y: sy + (p.Y-sy)*i/steps}
			robotgo.Move(last.X, last.Y)
			time.Sleep(moveStep)
		}
	})
	if err != nil {
		return err
	}
	return stepErr
}

func (r *Robot) Click(p Point) error {
	return guarded("click", func() {
		robotgo.Move(p.X, p.Y)
		robotgo.Click("left", false)
	})
}

func (r *Robot) Pixel(p Point) (c Color, err error) {
	var hex string
	err = guarded("pixel", func() {
		hex = robotgo.GetPixelColor(p.X, p.Y)
	})
	if err != nil {
		return Color{}, err
	}
	return ParseColor(hex)
}

func (r *Robot) Capture() (img image.Image, err error) {
	var capErr error
	err = guarded("capture", func() {
		img, capErr = robotgo.CaptureImg()
	})
	if err != nil {
		return nil, err
	}
	if capErr != nil {
		return nil, fmt.Errorf("capture: %w", capErr)
	}
	return img, nil
}

// guarded converts a panic from the native layer into an error.
func guarded(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", op, r)
		}
	}()
	fn()
	return nil
}
