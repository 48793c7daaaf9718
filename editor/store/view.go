package store

import (
	"canvas-editor/editor/geometry"
	"canvas-editor/editor/viewport"
)

// Viewport returns the current viewport state.
func (s *Store) Viewport() viewport.State {
	return s.view
}

// SetViewport replaces the viewport, clamping zoom into the configured range.
func (s *Store) SetViewport(v viewport.State) {
	s.view = v.Normalize(s.opts.Limits)
	s.emit(ChangeViewport)
}

// SetZoom sets the zoom factor, clamped into the configured range.
func (s *Store) SetZoom(z float64) {
	s.view = s.view.WithZoom(z, s.opts.Limits)
	s.emit(ChangeViewport)
}

// StepZoom zooms in (direction > 0) or out (direction < 0) by one step.
func (s *Store) StepZoom(direction int) {
	next := s.view.Step(direction, s.opts.Limits)
	if next == s.view {
		return
	}
	s.view = next
	s.emit(ChangeViewport)
}

// PanBy shifts the pan offset by a screen-pixel delta.
func (s *Store) PanBy(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	s.view = s.view.PanBy(dx, dy)
	s.emit(ChangeViewport)
}

func (s *Store) SetTool(t viewport.Tool) {
	s.view.Tool = t
	s.emit(ChangeViewport)
}

func (s *Store) SetGridEnabled(on bool) {
	s.view.GridEnabled = on
	s.emit(ChangeViewport)
}

func (s *Store) SetSnapEnabled(on bool) {
	s.view.SnapEnabled = on
	s.emit(ChangeViewport)
}

// Grid returns the snap grid in effect: the configured size, enabled only
// while snapping is switched on.
func (s *Store) Grid() geometry.Grid {
	return geometry.Grid{Size: s.opts.GridSize, Enabled: s.view.SnapEnabled}
}

// GuideThreshold returns the alignment tolerance in canvas units for the
// current zoom.
func (s *Store) GuideThreshold() float64 {
	return geometry.ScaledThreshold(s.opts.GuideThreshold, s.view.Zoom)
}

// SetGuides replaces the alignment guides shown on the canvas.
func (s *Store) SetGuides(g []geometry.Candidate) {
	if len(g) == 0 && len(s.guides) == 0 {
		return
	}
	s.guides = append([]geometry.Candidate(nil), g...)
	s.emit(ChangeGuides)
}

// ClearGuides hides every alignment guide.
func (s *Store) ClearGuides() {
	s.SetGuides(nil)
}

// Guides returns the alignment guides currently shown.
func (s *Store) Guides() []geometry.Candidate {
	return append([]geometry.Candidate(nil), s.guides...)
}

// Siblings returns the boxes of every visible layer except id, for
// alignment detection.
func (s *Store) Siblings(id string) []geometry.Sibling {
	out := make([]geometry.Sibling, 0, len(s.layers))
	for _, l := range s.layers {
		if l.ID == id || !l.Visible {
			continue
		}
		out = append(out, geometry.Sibling{ID: l.ID, Rect: geometry.Rect{X: l.X, Y: l.Y, W: l.Width, H: l.Height}})
	}
	return out
}

// Frame renders the current state for painting.
func (s *Store) Frame() viewport.Frame {
	return viewport.Render(viewport.Input{
		Layers:        s.layers,
		Selection:     s.selection,
		Hover:         s.hover,
		Guides:        s.guides,
		State:         s.view,
		GridSize:      s.opts.GridSize,
		LockedOpacity: s.opts.LockedOpacity,
	})
}
