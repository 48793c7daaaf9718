package geometry

import "strings"

// Handle is one of the eight compass resize handles around a box.
type Handle string

const (
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
	HandleNW Handle = "nw"
)

// Handles lists every resize handle clockwise from north.
var Handles = []Handle{HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW, HandleNW}

// Valid reports whether h is a known handle.
func (h Handle) Valid() bool {
	for _, known := range Handles {
		if h == known {
			return true
		}
	}
	return false
}

func (h Handle) north() bool { return strings.Contains(string(h), "n") }
func (h Handle) south() bool { return strings.Contains(string(h), "s") }
func (h Handle) east() bool  { return strings.Contains(string(h), "e") }
func (h Handle) west() bool  { return strings.Contains(string(h), "w") }

// Position returns where the handle sits on r.
func (h Handle) Position(r Rect) Point {
	p := Point{X: r.CenterX(), Y: r.CenterY()}
	if h.west() {
		p.X = r.Left()
	}
	if h.east() {
		p.X = r.Right()
	}
	if h.north() {
		p.Y = r.Top()
	}
	if h.south() {
		p.Y = r.Bottom()
	}
	return p
}

// Resize moves the edges named by h to the pointer while the opposite edges
// stay where they were in start. West and north handles shift the origin.
// Width and height never drop below minSize; the box is clamped, never
// inverted. The result is then quantized by grid and clamped once more.
func Resize(start Rect, h Handle, pointer Point, minSize float64, grid Grid) Rect {
	r := start

	if h.east() {
		r.W = pointer.X - start.Left()
		if r.W < minSize {
			r.W = minSize
		}
	}
	if h.west() {
		right := start.Right()
		r.W = right - pointer.X
		if r.W < minSize {
			r.W = minSize
		}
		r.X = right - r.W
	}
	if h.south() {
		r.H = pointer.Y - start.Top()
		if r.H < minSize {
			r.H = minSize
		}
	}
	if h.north() {
		bottom := start.Bottom()
		r.H = bottom - pointer.Y
		if r.H < minSize {
			r.H = minSize
		}
		r.Y = bottom - r.H
	}

	r = grid.SnapRect(r)
	if r.W < minSize {
		r.W = minSize
	}
	if r.H < minSize {
		r.H = minSize
	}
	return r
}
