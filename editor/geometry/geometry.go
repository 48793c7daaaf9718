// Package geometry holds the pure math behind snapping, alignment guides
// and handle-driven resizing. Every function is side-effect free and works
// in canvas-space units.
package geometry

import "math"

// Point is a position in canvas or screen space, depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box with its origin at the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (r Rect) Left() float64    { return r.X }
func (r Rect) Right() float64   { return r.X + r.W }
func (r Rect) Top() float64     { return r.Y }
func (r Rect) Bottom() float64  { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Union returns the smallest rect covering every input. It returns the zero
// rect for an empty input.
func Union(rects ...Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		minX = math.Min(minX, r.Left())
		minY = math.Min(minY, r.Top())
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
