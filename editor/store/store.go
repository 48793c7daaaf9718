// Package store is the single source of truth for an editor session: the
// layer collection, the selection, the viewport and the undo history. It
// is the only component that writes layer data.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package store

import (
	"math"

	"canvas-editor/editor/geometry"
	"canvas-editor/editor/history"
	"canvas-editor/editor/layer"
	"canvas-editor/editor/viewport"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options configures a Store. Zero fields fall back to DefaultOptions.
type Options struct {
	GridSize        float64
	Limits          viewport.Limits
	HistoryLimit    int
	DuplicateOffset float64
	LockedOpacity   float64
	GuideThreshold  float64
	NewID           func() string
}

// DefaultOptions returns the editor defaults.
func DefaultOptions() Options {
	return Options{
		GridSize:        20,
		Limits:          viewport.DefaultLimits,
		HistoryLimit:    100,
		DuplicateOffset: 20,
		LockedOpacity:   0.5,
		GuideThreshold:  5,
		NewID:           uuid.NewString,
	}
}

// ZoomLimits returns the zoom range a store built from o enforces.
func (o Options) ZoomLimits() viewport.Limits {
	return o.withDefaults().Limits
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GridSize <= 0 {
		o.GridSize = d.GridSize
	}
	if o.Limits.MinZoom <= 0 || o.Limits.MaxZoom < o.Limits.MinZoom {
		o.Limits = d.Limits
	}
	if o.Limits.ZoomStep <= 0 {
		o.Limits.ZoomStep = d.Limits.ZoomStep
	}
	if o.HistoryLimit < 0 {
		o.HistoryLimit = 0
	}
	if o.HistoryLimit == 0 {
		o.HistoryLimit = d.HistoryLimit
	}
	if o.DuplicateOffset == 0 {
		o.DuplicateOffset = d.DuplicateOffset
	}
	if o.LockedOpacity <= 0 || o.LockedOpacity > 1 {
		o.LockedOpacity = d.LockedOpacity
	}
	if o.GuideThreshold <= 0 {
		o.GuideThreshold = d.GuideThreshold
	}
	if o.NewID == nil {
		o.NewID = d.NewID
	}
	return o
}

// Update pairs a layer id with the partial fields to merge into it.
type Update struct {
	ID    string      `json:"id"`
	Patch layer.Patch `json:"patch"`
}

// Store holds the editor state. Construct it with New.
type Store struct {
	opts      Options
	layers    []layer.Layer
	selection []string
	hover     string
	guides    []geometry.Candidate
	view      viewport.State
	history   *history.History

	subscribers map[int]func(Change)
	nextSub     int
}

// New returns an empty store whose history starts with the empty canvas.
func New(opts Options) *Store {
	s := &Store{
		opts:        opts.withDefaults(),
		view:        viewport.DefaultState(),
		subscribers: make(map[int]func(Change)),
	}
	s.history = history.New(s.opts.HistoryLimit)
	s.history.Push(s.snapshot())
	return s
}

// Options returns the effective configuration.
func (s *Store) Options() Options {
	return s.opts
}

// AddLayer appends a layer after clamping it. An empty or already used id
// is replaced with a generated one. It returns the id the layer was stored
// under.
func (s *Store) AddLayer(l layer.Layer) string {
	l = l.Clone()
	if l.ID == "" || s.indexOf(l.ID) >= 0 {
		l.ID = s.opts.NewID()
	}
	l.Normalize()
	s.layers = append(s.layers, l)

	logrus.WithFields(logrus.Fields{
		"layer_id": l.ID,
		"type":     l.Type,
	}).Debug("Layer added")
	s.emit(ChangeLayers)
	return l.ID
}

// UpdateLayer merges patch into the layer with the given id. A stale id is
// silently ignored, since gesture handlers may race with deletion.
func (s *Store) UpdateLayer(id string, patch layer.Patch) {
	if s.apply(id, patch) {
		s.emit(ChangeLayers)
	}
}

// UpdateLayerBatch applies several updates and notifies subscribers once.
// Stale ids are skipped.
func (s *Store) UpdateLayerBatch(updates []Update) {
	changed := false
	for _, u := range updates {
		if s.apply(u.ID, u.Patch) {
			changed = true
		}
	}
	if changed {
		s.emit(ChangeLayers)
	}
}

func (s *Store) apply(id string, patch layer.Patch) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.layers[i].Apply(patch)
	return true
}

// DeleteLayer removes a layer and drops it from the selection.
func (s *Store) DeleteLayer(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	s.selection = without(s.selection, id)
	if s.hover == id {
		s.hover = ""
	}

	logrus.WithField("layer_id", id).Debug("Layer deleted")
	s.emit(ChangeLayers | ChangeSelection)
}

// DuplicateLayer clones a layer under a new id, offset from the original
// and placed directly above it in z-order. The copy becomes the selection.
// It reports false when id is unknown.
func (s *Store) DuplicateLayer(id string) (string, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return "", false
	}
	orig := s.layers[i]

	for j := range s.layers {
		if s.layers[j].ZIndex > orig.ZIndex {
			s.layers[j].ZIndex++
		}
	}

	dup := orig.Clone()
	dup.ID = s.opts.NewID()
	dup.X += s.opts.DuplicateOffset
	dup.Y += s.opts.DuplicateOffset
	dup.ZIndex = orig.ZIndex + 1
	dup.Normalize()

	s.layers = append(s.layers, layer.Layer{})
	copy(s.layers[i+2:], s.layers[i+1:])
	s.layers[i+1] = dup
	s.selection = []string{dup.ID}

	logrus.WithFields(logrus.Fields{
		"layer_id":  dup.ID,
		"source_id": id,
	}).Debug("Layer duplicated")
	s.emit(ChangeLayers | ChangeSelection)
	return dup.ID, true
}

// BringToFront gives the layer a z-index one above the current maximum.
func (s *Store) BringToFront(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	top := math.MinInt
	for _, l := range s.layers {
		if l.ZIndex > top {
			top = l.ZIndex
		}
	}
	s.layers[i].ZIndex = top + 1
	s.emit(ChangeLayers)
}

// SendToBack gives the layer a z-index one below the current minimum.
func (s *Store) SendToBack(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	bottom := math.MaxInt
	for _, l := range s.layers {
		if l.ZIndex < bottom {
			bottom = l.ZIndex
		}
	}
	s.layers[i].ZIndex = bottom - 1
	s.emit(ChangeLayers)
}

// SelectLayer replaces the selection with id, or with add set toggles id
// in or out of the current selection.
func (s *Store) SelectLayer(id string, add bool) {
	if s.indexOf(id) < 0 {
		return
	}
	switch {
	case !add:
		s.selection = []string{id}
	case contains(s.selection, id):
		s.selection = without(s.selection, id)
	default:
		s.selection = append(s.selection, id)
	}
	s.emit(ChangeSelection)
}

// ClearSelection deselects everything.
func (s *Store) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = nil
	s.emit(ChangeSelection)
}

// SetHover marks the layer under the pointer; an empty id clears it.
func (s *Store) SetHover(id string) {
	if s.hover == id {
		return
	}
	s.hover = id
	s.emit(ChangeSelection)
}

// SaveHistory records the current layers and selection as a new undo entry.
func (s *Store) SaveHistory() {
	s.history.Push(s.snapshot())
	logrus.WithFields(logrus.Fields{
		"entries": s.history.Len(),
		"cursor":  s.history.Cursor(),
	}).Debug("History entry saved")
	s.emit(ChangeHistory)
}

// Undo restores the previous history entry. It reports false when there is
// nothing to undo.
func (s *Store) Undo() bool {
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

// Redo restores the next history entry. It reports false when there is
// nothing to redo.
func (s *Store) Redo() bool {
	snap, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// HistoryLen returns the number of recorded entries.
func (s *Store) HistoryLen() int { return s.history.Len() }

func (s *Store) snapshot() history.Snapshot {
	return history.Snapshot{Layers: s.layers, Selection: s.selection}.Clone()
}

func (s *Store) restore(snap history.Snapshot) {
	s.layers = snap.Layers
	s.selection = s.selection[:0]
	for _, id := range snap.Selection {
		if s.indexOf(id) >= 0 {
			s.selection = append(s.selection, id)
		}
	}
	if s.hover != "" && s.indexOf(s.hover) < 0 {
		s.hover = ""
	}
	s.guides = nil
	s.emit(ChangeLayers | ChangeSelection | ChangeHistory | ChangeGuides)
}

// Layers returns a copy of every layer in insertion order.
func (s *Store) Layers() []layer.Layer {
	out := make([]layer.Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.Clone()
	}
	return out
}

// Layer returns a copy of the layer with the given id.
func (s *Store) Layer(id string) (layer.Layer, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return layer.Layer{}, false
	}
	return s.layers[i].Clone(), true
}

// Len returns the number of layers.
func (s *Store) Len() int { return len(s.layers) }

// Selection returns the selected layer ids.
func (s *Store) Selection() []string {
	return append([]string(nil), s.selection...)
}

// IsSelected reports whether id is part of the selection.
func (s *Store) IsSelected(id string) bool {
	return contains(s.selection, id)
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.layers {
		if s.layers[i].ID == id {
			return i
		}
	}
	return -1
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
