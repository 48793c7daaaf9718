package store

import (
	"sort"

	"canvas-editor/editor/geometry"
	"canvas-editor/editor/layer"
)

// Edge names the feature the align tool lines layers up on.
type Edge string

const (
	EdgeLeft   Edge = "left"
	EdgeCenter Edge = "center"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeMiddle Edge = "middle"
	EdgeBottom Edge = "bottom"
)

func (e Edge) Valid() bool {
	switch e {
	case EdgeLeft, EdgeCenter, EdgeRight, EdgeTop, EdgeMiddle, EdgeBottom:
		return true
	}
	return false
}

// AlignSelection moves every selected layer so the chosen edge matches the
// selection's bounding box. Locked layers are moved too: the lock only
// guards against pointer gestures. It needs at least two selected layers and
// reports whether anything was applied. The caller commits history.
func (s *Store) AlignSelection(edge Edge) bool {
	sel := s.selectedLayers()
	if len(sel) < 2 || !edge.Valid() {
		return false
	}
	updates := AlignUpdates(sel, edge)
	s.UpdateLayerBatch(updates)
	return len(updates) > 0
}

// DistributeSelection spaces three or more selected layers evenly along
// axis, keeping the outermost two in place. Like AlignSelection it ignores
// locks and leaves the history commit to the caller.
func (s *Store) DistributeSelection(axis geometry.Axis) bool {
	sel := s.selectedLayers()
	if len(sel) < 3 {
		return false
	}
	updates := DistributeUpdates(sel, axis)
	s.UpdateLayerBatch(updates)
	return len(updates) > 0
}

func (s *Store) selectedLayers() []layer.Layer {
	out := make([]layer.Layer, 0, len(s.selection))
	for _, id := range s.selection {
		if i := s.indexOf(id); i >= 0 {
			out = append(out, s.layers[i])
		}
	}
	return out
}

// AlignUpdates computes the batch that aligns layers on edge.
func AlignUpdates(layers []layer.Layer, edge Edge) []Update {
	rects := make([]geometry.Rect, len(layers))
	for i, l := range layers {
		rects[i] = rectOf(l)
	}
	box := geometry.Union(rects...)

	updates := make([]Update, 0, len(layers))
	for _, l := range layers {
		var p layer.Patch
		switch edge {
		case EdgeLeft:
			p.X = ptr(box.Left())
		case EdgeCenter:
			p.X = ptr(box.CenterX() - l.Width/2)
		case EdgeRight:
			p.X = ptr(box.Right() - l.Width)
		case EdgeTop:
			p.Y = ptr(box.Top())
		case EdgeMiddle:
			p.Y = ptr(box.CenterY() - l.Height/2)
		case EdgeBottom:
			p.Y = ptr(box.Bottom() - l.Height)
		default:
			continue
		}
		updates = append(updates, Update{ID: l.ID, Patch: p})
	}
	return updates
}

// DistributeUpdates computes the batch that leaves equal gaps between
// consecutive layers along axis. Horizontal distribution moves x; vertical
// distribution moves y.
func DistributeUpdates(layers []layer.Layer, axis geometry.Axis) []Update {
	if len(layers) < 3 {
		return nil
	}
	sorted := append([]layer.Layer(nil), layers...)
	horizontal := axis == geometry.Horizontal

	start := func(l layer.Layer) float64 {
		if horizontal {
			return l.X
		}
		return l.Y
	}
	size := func(l layer.Layer) float64 {
		if horizontal {
			return l.Width
		}
		return l.Height
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return start(sorted[i]) < start(sorted[j])
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	span := start(last) + size(last) - start(first)
	total := 0.0
	for _, l := range sorted {
		total += size(l)
	}
	gap := (span - total) / float64(len(sorted)-1)

	updates := make([]Update, 0, len(sorted)-2)
	cursor := start(first) + size(first) + gap
	for _, l := range sorted[1 : len(sorted)-1] {
		pos := cursor
		var p layer.Patch
		if horizontal {
			p.X = &pos
		} else {
			p.Y = &pos
		}
		updates = append(updates, Update{ID: l.ID, Patch: p})
		cursor += size(l) + gap
	}
	return updates
}

func rectOf(l layer.Layer) geometry.Rect {
	return geometry.Rect{X: l.X, Y: l.Y, W: l.Width, H: l.Height}
}

func ptr[T any](v T) *T {
	return &v
}
