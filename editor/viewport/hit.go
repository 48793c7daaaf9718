package viewport

import (
	"math"

	"canvas-editor/editor/geometry"
)

// HandleRadius is the screen-space grab tolerance around a resize handle.
const HandleRadius = 6.0

// Hit is the result of a hit test. Handle is empty when the body was hit.
type Hit struct {
	LayerID string
	Handle  geometry.Handle
}

// HitTest finds what lies under a screen point, front-most first. Resize
// handles of selected items win over bodies. Locked items take no pointer
// input, so the test passes through them.
func (f Frame) HitTest(p geometry.Point) (Hit, bool) {
	for i := len(f.Items) - 1; i >= 0; i-- {
		it := f.Items[i]
		if !it.Interactive {
			continue
		}
		for _, h := range it.Handles {
			hp := h.Position(it.Screen)
			if math.Abs(hp.X-p.X) <= HandleRadius && math.Abs(hp.Y-p.Y) <= HandleRadius {
				return Hit{LayerID: it.Layer.ID, Handle: h}, true
			}
		}
	}
	for i := len(f.Items) - 1; i >= 0; i-- {
		it := f.Items[i]
		if it.Interactive && it.Screen.Contains(p) {
			return Hit{LayerID: it.Layer.ID}, true
		}
	}
	return Hit{}, false
}
