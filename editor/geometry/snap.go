package geometry

import "math"

// SnapToGrid rounds value to the nearest multiple of gridSize. A
// non-positive grid size disables snapping and returns value unchanged.
func SnapToGrid(value, gridSize float64) float64 {
	if gridSize <= 0 || math.IsNaN(gridSize) || math.IsInf(gridSize, 0) {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

// Grid is a snap configuration. The zero value does not snap.
type Grid struct {
	Size    float64
	Enabled bool
}

// Snap quantizes v when the grid is enabled and is the identity otherwise.
func (g Grid) Snap(v float64) float64 {
	if !g.Enabled {
		return v
	}
	return SnapToGrid(v, g.Size)
}

// SnapRect snaps each of x, y, width and height independently.
func (g Grid) SnapRect(r Rect) Rect {
	return Rect{X: g.Snap(r.X), Y: g.Snap(r.Y), W: g.Snap(r.W), H: g.Snap(r.H)}
}
