// Package viewport holds the pan/zoom transform and paint order over a
// layer set. Nothing here mutates layers.
package viewport

import (
	"math"

	"canvas-editor/editor/geometry"
)

// Tool is the active canvas tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolHand   Tool = "hand"
	ToolText   Tool = "text"
	ToolShape  Tool = "shape"
)

// Limits bounds the zoom factor and its wheel step.
type Limits struct {
	MinZoom  float64 `yaml:"min_zoom" json:"minZoom"`
	MaxZoom  float64 `yaml:"max_zoom" json:"maxZoom"`
	ZoomStep float64 `yaml:"zoom_step" json:"zoomStep"`
}

// DefaultLimits is the zoom range used when none is configured.
var DefaultLimits = Limits{MinZoom: 0.1, MaxZoom: 4.0, ZoomStep: 0.1}

// State is the serializable viewport: zoom, pan in screen pixels, grid and
// snap toggles and the active tool.
type State struct {
	Zoom        float64 `json:"zoom"`
	PanX        float64 `json:"panX"`
	PanY        float64 `json:"panY"`
	GridEnabled bool    `json:"gridEnabled"`
	SnapEnabled bool    `json:"snapEnabled"`
	Tool        Tool    `json:"tool"`
}

// DefaultState is the viewport of a freshly opened editor.
func DefaultState() State {
	return State{Zoom: 1, GridEnabled: true, SnapEnabled: true, Tool: ToolSelect}
}

// ClampZoom keeps z inside the configured range.
func (l Limits) ClampZoom(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 1
	}
	return math.Min(l.MaxZoom, math.Max(l.MinZoom, z))
}

// WithZoom returns s with the zoom clamped into l.
func (s State) WithZoom(z float64, l Limits) State {
	s.Zoom = l.ClampZoom(z)
	return s
}

// Step applies one wheel notch: a positive direction zooms in by the
// configured step, a negative one zooms out. Zoom is center-anchored, so pan
// is left alone. The result is rounded to suppress float drift.
func (s State) Step(direction int, l Limits) State {
	switch {
	case direction > 0:
		s.Zoom += l.ZoomStep
	case direction < 0:
		s.Zoom -= l.ZoomStep
	default:
		return s
	}
	s.Zoom = l.ClampZoom(math.Round(s.Zoom*1000) / 1000)
	return s
}

// PanBy translates the pan offset by a screen-pixel delta, unscaled by zoom.
func (s State) PanBy(dx, dy float64) State {
	s.PanX += dx
	s.PanY += dy
	return s
}

// Normalize repairs a decoded state so it can be used directly.
func (s State) Normalize(l Limits) State {
	if s.Zoom == 0 {
		s.Zoom = 1
	}
	s.Zoom = l.ClampZoom(s.Zoom)
	if math.IsNaN(s.PanX) || math.IsInf(s.PanX, 0) {
		s.PanX = 0
	}
	if math.IsNaN(s.PanY) || math.IsInf(s.PanY, 0) {
		s.PanY = 0
	}
	if s.Tool == "" {
		s.Tool = ToolSelect
	}
	return s
}

// ScreenToCanvas converts a pointer position into canvas space.
func (s State) ScreenToCanvas(p geometry.Point) geometry.Point {
	z := s.Zoom
	if z <= 0 {
		z = 1
	}
	return geometry.Point{X: (p.X - s.PanX) / z, Y: (p.Y - s.PanY) / z}
}

// CanvasToScreen is the inverse of ScreenToCanvas.
func (s State) CanvasToScreen(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X*s.Zoom + s.PanX, Y: p.Y*s.Zoom + s.PanY}
}

// Grid is the decorative background pattern: a repeat spacing and the
// phase offset of the first line, both in screen pixels.
type Grid struct {
	Spacing float64 `json:"spacing"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// GridPattern returns the background grid for s, or nil when the grid is
// hidden. It has no bearing on snapping, which stays in canvas units.
func (s State) GridPattern(gridSize float64) *Grid {
	if !s.GridEnabled || gridSize <= 0 {
		return nil
	}
	spacing := gridSize * s.Zoom
	return &Grid{
		Spacing: spacing,
		OffsetX: math.Mod(math.Mod(s.PanX, spacing)+spacing, spacing),
		OffsetY: math.Mod(math.Mod(s.PanY, spacing)+spacing, spacing),
	}
}
