package interaction

// Scheduler decides when a coalesced pointer-move is applied. It stands in
// for the display's frame callback.
type Scheduler interface {
	RequestFrame(fn func())
}

// Immediate runs every frame request synchronously.
type Immediate struct{}

func (Immediate) RequestFrame(fn func()) { fn() }

// FrameQueue holds frame requests until Flush, which the owner calls once
// per display frame.
type FrameQueue struct {
	pending []func()
}

func (q *FrameQueue) RequestFrame(fn func()) {
	q.pending = append(q.pending, fn)
}

// Flush runs the queued requests and reports how many ran. Requests made
// while flushing wait for the next frame.
func (q *FrameQueue) Flush() int {
	batch := q.pending
	q.pending = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of queued requests.
func (q *FrameQueue) Pending() int {
	return len(q.pending)
}
