package commands

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"qiandao/internal/config"
	"qiandao/internal/output"
	"qiandao/internal/screen"
	"qiandao/internal/ui"
)

// nearRadius is how close the pointer must be to a named position for probe
// to label it.
const nearRadius = 8

type probeSample struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
	Near  string `json:"near,omitempty"`
}

// nearestPosition returns the configured position closest to p within
// nearRadius pixels.
func nearestPosition(positions map[string]screen.Point, p screen.Point) (string, bool) {
	names := make([]string, 0, len(positions))
	for n := range positions {
		names = append(names, n)
	}
	sort.Strings(names)

	best, bestDist := "", math.MaxFloat64
	for _, n := range names {
		q := positions[n]
		d := math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
		if d <= nearRadius && d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, best != ""
}

// RunProbe samples the pointer location and the colour under it.
func RunProbe(watch bool, interval time.Duration) {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowWarning("Config not loaded, positions will not be labelled: %v", err)
		cfg = config.Default()
	}
	d := screen.NewRobot()

	sample := func() (probeSample, error) {
		p, err := d.Location()
		if err != nil {
			return probeSample{}, err
		}
		c, err := d.Pixel(p)
		if err != nil {
			return probeSample{}, err
		}
		s := probeSample{X: p.X, Y: p.Y, Color: c.Hex()}
		s.Near, _ = nearestPosition(cfg.Positions, p)
		return s, nil
	}
	show := func(s probeSample) {
		if output.JSONMode {
			output.Line(s)
			return
		}
		line := fmt.Sprintf(" (%d, %d)  %s", s.X, s.Y, s.Color)
		if s.Near != "" {
			line += "  near " + s.Near
		}
		fmt.Println(line)
	}

	if !watch {
		s, err := sample()
		if err != nil {
			fail("Failed to read the screen", err)
		}
		show(s)
		return
	}

	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if !output.JSONMode {
		ui.ShowInfo("Move the pointer over a target; Ctrl+C to stop")
	}
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last probeSample
	first := true
	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			s, err := sample()
			if err != nil {
				ui.ShowWarning("%v", err)
				continue
			}
			if first || s != last {
				show(s)
				last, first = s, false
			}
		}
	}
}
