// Package interaction turns pointer input into store mutations: per-layer
// drag and resize gestures, canvas panning and wheel zoom.
package interaction

import "canvas-editor/editor/geometry"

// Mouse buttons as reported by pointer events.
const (
	ButtonPrimary = 0
	ButtonMiddle  = 1
)

// PointerEvent is a pointer sample in screen space. Handle is set when the
// pointer went down on a resize handle rather than the layer body.
type PointerEvent struct {
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Button int             `json:"button"`
	Shift  bool            `json:"shift"`
	Handle geometry.Handle `json:"handle,omitempty"`
}

// Point returns the screen position of the event.
func (e PointerEvent) Point() geometry.Point {
	return geometry.Point{X: e.X, Y: e.Y}
}

// WheelEvent is one wheel notch. Modifier is true when ctrl or meta was held.
type WheelEvent struct {
	DeltaX   float64 `json:"deltaX"`
	DeltaY   float64 `json:"deltaY"`
	Modifier bool    `json:"modifier"`
}

// Listener receives pointer input captured for the length of a gesture.
type Listener interface {
	PointerMove(PointerEvent)
	PointerUp(PointerEvent)
}
