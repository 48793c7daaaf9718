package interaction

// Surface hands out gesture-scoped pointer capture. Capture must be paired
// with exactly one call of the returned release func.
type Surface interface {
	Capture(l Listener) (release func())
}

// Dispatcher is a Surface that forwards window-level moves and ups to every
// listener currently holding a capture.
type Dispatcher struct {
	listeners map[int]Listener
	order     []int
	next      int
}

// NewDispatcher returns a dispatcher with no captures.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[int]Listener)}
}

// Capture registers l until the returned func is called. Calling release
// more than once is harmless.
func (d *Dispatcher) Capture(l Listener) func() {
	id := d.next
	d.next++
	d.listeners[id] = l
	d.order = append(d.order, id)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		delete(d.listeners, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Move forwards a pointer-move to the captured listeners.
func (d *Dispatcher) Move(ev PointerEvent) {
	for _, l := range d.active() {
		l.PointerMove(ev)
	}
}

// Up forwards a pointer-up to the captured listeners. Listeners usually
// release their capture while handling it.
func (d *Dispatcher) Up(ev PointerEvent) {
	for _, l := range d.active() {
		l.PointerUp(ev)
	}
}

// Captured returns how many listeners hold a capture.
func (d *Dispatcher) Captured() int {
	return len(d.listeners)
}

func (d *Dispatcher) active() []Listener {
	out := make([]Listener, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.listeners[id])
	}
	return out
}
