package interaction

import (
	"canvas-editor/editor/geometry"
	"canvas-editor/editor/layer"
	"canvas-editor/editor/store"

	"github.com/sirupsen/logrus"
)

// State is the gesture state of one layer.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	}
	return "idle"
}

// Controller runs the drag/resize state machine for a single layer. Every
// intermediate position goes through Store.UpdateLayer; each finished
// gesture commits exactly one history entry.
type Controller struct {
	store   *store.Store
	layerID string
	surface Surface
	sched   Scheduler

	state   State
	handle  geometry.Handle
	offset  geometry.Point
	start   geometry.Rect
	release func()

	pending      *PointerEvent
	framePending bool
}

// NewController binds a controller to a layer. A nil scheduler applies
// moves immediately.
func NewController(s *store.Store, layerID string, surface Surface, sched Scheduler) *Controller {
	if sched == nil {
		sched = Immediate{}
	}
	return &Controller{store: s, layerID: layerID, surface: surface, sched: sched}
}

// LayerID returns the layer this controller drives.
func (c *Controller) LayerID() string { return c.layerID }

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// PointerDown starts a gesture. A down on the body selects the layer
// (shift toggles) and begins a drag; a down on a resize handle begins a
// resize without touching the selection. Locked or missing layers, and a
// controller already in a gesture, refuse. It reports whether a gesture
// started.
func (c *Controller) PointerDown(ev PointerEvent) bool {
	if c.state != Idle {
		return false
	}
	l, ok := c.store.Layer(c.layerID)
	if !ok || l.Locked {
		return false
	}

	p := c.store.Viewport().ScreenToCanvas(ev.Point())
	c.start = geometry.Rect{X: l.X, Y: l.Y, W: l.Width, H: l.Height}

	if ev.Handle != "" {
		if !ev.Handle.Valid() {
			return false
		}
		c.state = Resizing
		c.handle = ev.Handle
	} else {
		c.store.SelectLayer(c.layerID, ev.Shift)
		c.state = Dragging
		c.offset = geometry.Point{X: p.X - l.X, Y: p.Y - l.Y}
	}

	if c.surface != nil {
		c.release = c.surface.Capture(c)
	}

	logrus.WithFields(logrus.Fields{
		"layer_id": c.layerID,
		"gesture":  c.state.String(),
		"handle":   c.handle,
	}).Debug("Gesture started")
	return true
}

// PointerMove records the latest pointer position; it is applied on the
// next frame. Moves outside a gesture are ignored.
func (c *Controller) PointerMove(ev PointerEvent) {
	if c.state == Idle {
		return
	}
	c.pending = &ev
	if c.framePending {
		return
	}
	c.framePending = true
	c.sched.RequestFrame(c.flush)
}

func (c *Controller) flush() {
	c.framePending = false
	ev := c.pending
	c.pending = nil
	if ev == nil || c.state == Idle {
		return
	}

	p := c.store.Viewport().ScreenToCanvas(ev.Point())
	switch c.state {
	case Dragging:
		c.drag(p)
	case Resizing:
		c.resize(p)
	}
}

func (c *Controller) drag(p geometry.Point) {
	l, ok := c.store.Layer(c.layerID)
	if !ok {
		return
	}
	grid := c.store.Grid()
	x := grid.Snap(p.X - c.offset.X)
	y := grid.Snap(p.Y - c.offset.Y)
	c.store.UpdateLayer(c.layerID, layer.Move(x, y))

	moved := geometry.Rect{X: x, Y: y, W: l.Width, H: l.Height}
	c.store.SetGuides(geometry.FindAlignmentCandidates(moved, c.store.Siblings(c.layerID), c.store.GuideThreshold()))
}

func (c *Controller) resize(p geometry.Point) {
	r := geometry.Resize(c.start, c.handle, p, layer.MinSize, c.store.Grid())
	c.store.UpdateLayer(c.layerID, layer.Frame(r.X, r.Y, r.W, r.H))
}

// PointerUp applies any pending move, commits one history entry, clears the
// guides and releases the pointer capture. Releasing always commits, even
// when nothing moved.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.state == Idle {
		return
	}
	c.flush()
	c.finish()
}

// Close tears the controller down. A gesture still in flight is committed
// as if the pointer had been released, so capture never outlives the
// controller. When the layer itself is gone there is nothing to commit:
// capture and guides are released and history is left alone.
func (c *Controller) Close() {
	if c.state == Idle {
		return
	}
	c.flush()
	c.finish()
}

func (c *Controller) finish() {
	gesture := c.state
	c.state = Idle
	c.handle = ""
	c.pending = nil
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.store.ClearGuides()

	log := logrus.WithFields(logrus.Fields{
		"layer_id": c.layerID,
		"gesture":  gesture.String(),
	})
	if _, ok := c.store.Layer(c.layerID); !ok {
		log.Debug("Gesture abandoned, layer is gone")
		return
	}
	c.store.SaveHistory()
	log.Debug("Gesture committed")
}
