package automation

import (
	"fmt"
	"sort"

	"qiandao/internal/screen"
)

// PositionName identifies an entry of the coordinate map.
type PositionName string

const (
	BrowserIcon PositionName = "browser_icon"
	Bookmark    PositionName = "bookmark"
	GameSubtab  PositionName = "game_subtag"
	GameLink    PositionName = "game_link"
	SignTab     PositionName = "sign_tag"
	SignButton  PositionName = "sign_btn"
)

// RequiredPositions lists every name the workflow clicks or waits on.
var RequiredPositions = []PositionName{BrowserIcon, Bookmark, GameSubtab, GameLink, SignTab, SignButton}

// IsPosition reports whether name is one of the required positions.
func IsPosition(name PositionName) bool {
	for _, n := range RequiredPositions {
		if n == name {
			return true
		}
	}
	return false
}

// Positions maps names to screen coordinates.
type Positions map[PositionName]screen.Point

// DefaultPositions is the layout of a 1920x1080 desktop with the browser
// pinned to the taskbar.
func DefaultPositions() Positions {
	return Positions{
		BrowserIcon: {X: 508, Y: 1055},
		Bookmark:    {X: 1385, Y: 116},
		GameSubtab:  {X: 1446, Y: 168},
		GameLink:    {X: 1131, Y: 340},
		SignTab:     {X: 1870, Y: 713},
		SignButton:  {X: 1740, Y: 302},
	}
}

// Clone returns an independent copy.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Validate checks that all required names are present with non-negative
// coordinates.
func (p Positions) Validate() error {
	for _, name := range RequiredPositions {
		pt, ok := p[name]
		if !ok {
			return fmt.Errorf("position %q is not configured", name)
		}
		if pt.X < 0 || pt.Y < 0 {
			return fmt.Errorf("position %q has negative coordinate %s", name, pt)
		}
	}
	return nil
}

// Outside returns the names whose coordinates fall outside a w x h screen,
// sorted.
func (p Positions) Outside(w, h int) []PositionName {
	var out []PositionName
	for name, pt := range p {
		if pt.X >= w || pt.Y >= h {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns all configured names, sorted.
func (p Positions) Names() []PositionName {
	out := make([]PositionName, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
