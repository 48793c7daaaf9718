package sessions

import (
	"canvas-editor/editor/geometry"
	"canvas-editor/editor/interaction"
)

// PointerKind is the phase of a pointer event.
type PointerKind string

const (
	PointerDown PointerKind = "down"
	PointerMove PointerKind = "move"
	PointerUp   PointerKind = "up"
)

// Pointer is a pointer event as sent by a client, in screen coordinates.
// LayerID and Handle may be left empty on a down; the session then hit
// tests the rendered frame to find the target.
type Pointer struct {
	Kind    PointerKind     `json:"kind"`
	LayerID string          `json:"layerId,omitempty"`
	Handle  geometry.Handle `json:"handle,omitempty"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Button  int             `json:"button"`
	Shift   bool            `json:"shift"`
}

func (p Pointer) event() interaction.PointerEvent {
	return interaction.PointerEvent{
		X:      p.X,
		Y:      p.Y,
		Button: p.Button,
		Shift:  p.Shift,
		Handle: p.Handle,
	}
}
