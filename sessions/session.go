package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"canvas-editor/core"
	"canvas-editor/editor/geometry"
	"canvas-editor/editor/interaction"
	"canvas-editor/editor/layer"
	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Session is one live editor: a Store plus the gesture machinery driving
// it. Every method serializes on the session mutex, so the editor core sees
// a single-threaded event stream.
type Session struct {
	ID string

	mu          sync.Mutex
	designID    string
	store       *store.Store
	surface     *interaction.Dispatcher
	frames      *interaction.FrameQueue
	panner      *interaction.Panner
	controllers map[string]*interaction.Controller
	lastActive  time.Time
	dirty       bool
	unsubscribe func()
	publish     func(*Session, viewport.Frame)
	now         func() time.Time
}

func newSession(id, designID string, opts store.Options, now func() time.Time, publish func(*Session, viewport.Frame)) *Session {
	s := &Session{
		ID:          id,
		designID:    designID,
		store:       store.New(opts),
		surface:     interaction.NewDispatcher(),
		frames:      &interaction.FrameQueue{},
		controllers: make(map[string]*interaction.Controller),
		lastActive:  now(),
		publish:     publish,
		now:         now,
	}
	s.panner = interaction.NewPanner(s.store, s.surface)
	s.unsubscribe = s.store.Subscribe(func(c store.Change) {
		s.dirty = true
	})
	return s
}

// do runs fn under the session lock as client activity and pushes a fresh
// frame to the publisher when the store changed.
func (s *Session) do(fn func()) {
	s.apply(true, fn)
}

func (s *Session) apply(touch bool, fn func()) {
	s.mu.Lock()
	if touch {
		s.lastActive = s.now()
	}
	fn()
	s.prune()
	var (
		frame   viewport.Frame
		changed = s.dirty
	)
	if changed {
		frame = s.store.Frame()
		s.dirty = false
	}
	s.mu.Unlock()

	if changed && s.publish != nil {
		s.publish(s, frame)
	}
}

// prune tears down controllers whose layer is gone.
func (s *Session) prune() {
	for id, c := range s.controllers {
		if _, ok := s.store.Layer(id); !ok {
			c.Close()
			delete(s.controllers, id)
		}
	}
}

func (s *Session) controller(id string) *interaction.Controller {
	c, ok := s.controllers[id]
	if !ok {
		c = interaction.NewController(s.store, id, s.surface, s.frames)
		s.controllers[id] = c
	}
	return c
}

// DesignID returns the design this session saves to. It is empty until the
// first save of a session opened without one.
func (s *Session) DesignID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.designID
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Frame renders the current state.
func (s *Session) Frame() viewport.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Frame()
}

// Scene exports the current layers and viewport.
func (s *Session) Scene() store.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Export()
}

// Dispatch feeds pointer events to the editor. A down goes to the panner
// when the tool or button calls for panning, otherwise to the controller of
// the layer under the pointer; a down on empty canvas clears the selection.
// Moves and ups reach whoever holds the pointer capture.
func (s *Session) Dispatch(events ...Pointer) {
	s.do(func() {
		for _, p := range events {
			s.dispatch(p)
		}
	})
}

func (s *Session) dispatch(p Pointer) {
	ev := p.event()
	switch p.Kind {
	case PointerDown:
		if s.panner.Active() || s.panner.PointerDown(ev) {
			return
		}
		target := p.LayerID
		if target == "" {
			hit, ok := s.store.Frame().HitTest(ev.Point())
			if !ok {
				s.store.ClearSelection()
				return
			}
			target, ev.Handle = hit.LayerID, hit.Handle
		}
		if _, ok := s.store.Layer(target); !ok {
			return
		}
		s.controller(target).PointerDown(ev)
	case PointerMove:
		if s.surface.Captured() > 0 {
			s.surface.Move(ev)
			return
		}
		hit, _ := s.store.Frame().HitTest(ev.Point())
		s.store.SetHover(hit.LayerID)
	case PointerUp:
		s.surface.Up(ev)
	default:
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"kind":       p.Kind,
		}).Warn("Ignoring unknown pointer event")
	}
}

// Wheel applies a wheel notch to the viewport.
func (s *Session) Wheel(ev interaction.WheelEvent) {
	s.do(func() {
		interaction.Wheel(s.store, ev)
	})
}

// Flush applies coalesced pointer moves. The registry calls it once per
// frame; request handlers call it to answer with an up to date frame. It
// does not count as activity for idle eviction.
func (s *Session) Flush() int {
	var n int
	s.apply(false, func() {
		n = s.frames.Flush()
	})
	return n
}

// AddLayer inserts a layer and commits it to history.
func (s *Session) AddLayer(l layer.Layer) string {
	var id string
	s.do(func() {
		id = s.store.AddLayer(l)
		s.store.SaveHistory()
	})
	return id
}

// InsertLayout adds a generated arrangement of layers as one undoable step.
func (s *Session) InsertLayout(layers []layer.Layer) []string {
	ids := make([]string, 0, len(layers))
	s.do(func() {
		for _, l := range layers {
			ids = append(ids, s.store.AddLayer(l))
		}
		if len(ids) > 0 {
			s.store.SaveHistory()
		}
	})
	return ids
}

// UpdateLayer merges patch into one layer and commits. It reports false
// for an unknown id.
func (s *Session) UpdateLayer(id string, patch layer.Patch) bool {
	var ok bool
	s.do(func() {
		if _, ok = s.store.Layer(id); !ok {
			return
		}
		s.store.UpdateLayer(id, patch)
		s.store.SaveHistory()
	})
	return ok
}

// UpdateLayers applies a batch of updates as one history entry.
func (s *Session) UpdateLayers(updates []store.Update) {
	s.do(func() {
		s.store.UpdateLayerBatch(updates)
		s.store.SaveHistory()
	})
}

func (s *Session) DeleteLayer(id string) bool {
	var ok bool
	s.do(func() {
		if _, ok = s.store.Layer(id); !ok {
			return
		}
		s.store.DeleteLayer(id)
		s.store.SaveHistory()
	})
	return ok
}

func (s *Session) DuplicateLayer(id string) (string, bool) {
	var (
		dup string
		ok  bool
	)
	s.do(func() {
		if dup, ok = s.store.DuplicateLayer(id); ok {
			s.store.SaveHistory()
		}
	})
	return dup, ok
}

func (s *Session) BringToFront(id string) bool {
	return s.reorder(id, s.store.BringToFront)
}

func (s *Session) SendToBack(id string) bool {
	return s.reorder(id, s.store.SendToBack)
}

func (s *Session) reorder(id string, fn func(string)) bool {
	var ok bool
	s.do(func() {
		if _, ok = s.store.Layer(id); !ok {
			return
		}
		fn(id)
		s.store.SaveHistory()
	})
	return ok
}

// Select replaces the selection with id, or toggles it when add is set.
func (s *Session) Select(id string, add bool) {
	s.do(func() {
		s.store.SelectLayer(id, add)
	})
}

func (s *Session) ClearSelection() {
	s.do(s.store.ClearSelection)
}

func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Selection()
}

func (s *Session) Undo() bool {
	var ok bool
	s.do(func() { ok = s.store.Undo() })
	return ok
}

func (s *Session) Redo() bool {
	var ok bool
	s.do(func() { ok = s.store.Redo() })
	return ok
}

// SetViewport replaces zoom, pan, grid, snap and tool.
func (s *Session) SetViewport(v viewport.State) {
	s.do(func() {
		s.store.SetViewport(v)
	})
}

// Align lines up the selected layers and commits when anything moved.
func (s *Session) Align(edge store.Edge) bool {
	var ok bool
	s.do(func() {
		if ok = s.store.AlignSelection(edge); ok {
			s.store.SaveHistory()
		}
	})
	return ok
}

// Distribute spaces the selected layers evenly and commits when anything
// moved.
func (s *Session) Distribute(axis geometry.Axis) bool {
	var ok bool
	s.do(func() {
		if ok = s.store.DistributeSelection(axis); ok {
			s.store.SaveHistory()
		}
	})
	return ok
}

// Save writes the scene to the session's design, creating the design on
// first save. It returns the design id.
func (s *Session) Save(ctx context.Context, designs core.DesignStore) (string, error) {
	s.mu.Lock()
	s.lastActive = s.now()
	scene := s.store.Export()
	designID := s.designID
	s.mu.Unlock()

	data, err := scene.Encode()
	if err != nil {
		return "", fmt.Errorf("encode scene: %w", err)
	}

	design := &core.Design{ID: designID, Data: data}
	if designID == "" {
		design.ID = ulid.Make().String()
		design.Name = design.ID
	} else {
		existing, err := designs.Get(ctx, designID)
		switch {
		case err == nil:
			design.Name = existing.Name
			design.Thumbnail = existing.Thumbnail
		case errors.Is(err, core.ErrNotFound):
			design.Name = designID
		default:
			return "", err
		}
	}

	if err := designs.Save(ctx, design); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.designID = design.ID
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"session_id": s.ID,
		"design_id":  design.ID,
		"layers":     len(scene.Layers),
	}).Info("Session saved")
	return design.ID, nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.controllers {
		c.Close()
		delete(s.controllers, id)
	}
	s.panner.Close()
	s.unsubscribe()
}
