package store

// Change is a bit set describing what a mutation touched.
type Change uint8

const (
	ChangeLayers Change = 1 << iota
	ChangeSelection
	ChangeViewport
	ChangeGuides
	ChangeHistory
)

// Has reports whether c includes every bit of other.
func (c Change) Has(other Change) bool {
	return c&other == other
}

// Subscribe registers fn to run after every mutation, once per public call.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		delete(s.subscribers, id)
	}
}

func (s *Store) emit(c Change) {
	for _, fn := range s.subscribers {
		fn(c)
	}
}
