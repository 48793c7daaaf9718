package interaction

import (
	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"
)

// Panner drags the viewport. It engages with the hand tool or the middle
// button; pointer deltas move the pan offset 1:1 in screen pixels.
type Panner struct {
	store   *store.Store
	surface Surface
	active  bool
	lastX   float64
	lastY   float64
	release func()
}

func NewPanner(s *store.Store, surface Surface) *Panner {
	return &Panner{store: s, surface: surface}
}

// Engages reports whether a pointer-down with ev should pan rather than
// reach the layers.
func (p *Panner) Engages(ev PointerEvent) bool {
	return ev.Button == ButtonMiddle || p.store.Viewport().Tool == viewport.ToolHand
}

// Active reports whether a pan is in progress.
func (p *Panner) Active() bool { return p.active }

// PointerDown starts panning when the tool or button calls for it.
func (p *Panner) PointerDown(ev PointerEvent) bool {
	if p.active || !p.Engages(ev) {
		return false
	}
	p.active = true
	p.lastX, p.lastY = ev.X, ev.Y
	if p.surface != nil {
		p.release = p.surface.Capture(p)
	}
	return true
}

func (p *Panner) PointerMove(ev PointerEvent) {
	if !p.active {
		return
	}
	p.store.PanBy(ev.X-p.lastX, ev.Y-p.lastY)
	p.lastX, p.lastY = ev.X, ev.Y
}

// PointerUp ends the pan. Viewport changes are not undoable, so nothing is
// committed to history.
func (p *Panner) PointerUp(ev PointerEvent) {
	if !p.active {
		return
	}
	p.PointerMove(ev)
	p.Close()
}

// Close ends any pan in progress and releases the capture.
func (p *Panner) Close() {
	p.active = false
	if p.release != nil {
		p.release()
		p.release = nil
	}
}

// Wheel applies a wheel notch. With ctrl/meta held it zooms one step
// (wheel up zooms in); otherwise it scrolls the canvas.
func Wheel(s *store.Store, ev WheelEvent) {
	if ev.Modifier {
		switch {
		case ev.DeltaY < 0:
			s.StepZoom(1)
		case ev.DeltaY > 0:
			s.StepZoom(-1)
		}
		return
	}
	s.PanBy(-ev.DeltaX, -ev.DeltaY)
}
