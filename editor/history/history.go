// Package history implements linear undo/redo over full-state snapshots.
package history

import "canvas-editor/editor/layer"

// Snapshot is an immutable copy of the layer set and selection.
type Snapshot struct {
	Layers    []layer.Layer `json:"layers"`
	Selection []string      `json:"selection,omitempty"`
}

// Clone deep-copies the snapshot so neither copy can observe edits to the other.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Layers: make([]layer.Layer, len(s.Layers))}
	for i, l := range s.Layers {
		c.Layers[i] = l.Clone()
	}
	if s.Selection != nil {
		c.Selection = append([]string(nil), s.Selection...)
	}
	return c
}

// History is an ordered list of snapshots and a cursor into it. Entries
// after the cursor are the redo stack.
type History struct {
	entries []Snapshot
	cursor  int
	limit   int
}

// New returns an empty history. A positive limit caps the number of kept
// entries; the oldest are dropped first.
func New(limit int) *History {
	return &History{cursor: -1, limit: limit}
}

// Push truncates any entries ahead of the cursor, appends s and moves the
// cursor onto it.
func (h *History) Push(s Snapshot) {
	h.entries = append(h.entries[:h.cursor+1], s.Clone())
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append(h.entries[:0], h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo steps the cursor back and returns the snapshot to restore. It
// reports false at the first entry.
func (h *History) Undo() (Snapshot, bool) {
	if h.cursor <= 0 {
		return Snapshot{}, false
	}
	h.cursor--
	return h.entries[h.cursor].Clone(), true
}

// Redo steps the cursor forward and returns the snapshot to restore. It
// reports false at the last entry.
func (h *History) Redo() (Snapshot, bool) {
	if h.cursor >= len(h.entries)-1 {
		return Snapshot{}, false
	}
	h.cursor++
	return h.entries[h.cursor].Clone(), true
}

// Reset discards every entry and starts over from s.
func (h *History) Reset(s Snapshot) {
	h.entries = h.entries[:0]
	h.cursor = -1
	h.Push(s)
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Cursor() int   { return h.cursor }

// Current returns the snapshot under the cursor.
func (h *History) Current() (Snapshot, bool) {
	if h.cursor < 0 {
		return Snapshot{}, false
	}
	return h.entries[h.cursor].Clone(), true
}
