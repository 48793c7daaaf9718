// Package sessions keeps the live editing sessions of the server. Each
// session wraps one editor store; the registry opens them from saved
// designs, drives their frame clock and evicts the idle ones.
package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"canvas-editor/core"
	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	Options struct {
		Store         store.Options
		FrameInterval time.Duration
		IdleTimeout   time.Duration
	}

	// Info describes a session for listings.
	Info struct {
		ID         string `json:"id"`
		DesignID   string `json:"designId,omitempty"`
		Layers     int    `json:"layers"`
		LastActive int64  `json:"lastActive"`
	}

	// FrameFunc receives the frame of a session after it changed.
	FrameFunc func(sessionID string, frame viewport.Frame)

	// CloseFunc is told about every session the registry ends.
	CloseFunc func(sessionID string)

	Registry struct {
		mu       sync.RWMutex
		sessions map[string]*Session
		designs  core.DesignStore
		opts     Options
		onFrame  FrameFunc
		onClose  CloseFunc
		now      func() time.Time
	}
)

// NewRegistry returns an empty registry that loads designs from designs.
func NewRegistry(designs core.DesignStore, opts Options) *Registry {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Registry{
		sessions: make(map[string]*Session),
		designs:  designs,
		opts:     opts,
		now:      time.Now,
	}
}

// Designs returns the store sessions are saved to.
func (r *Registry) Designs() core.DesignStore {
	return r.designs
}

// OnFrame installs the callback that receives frames of changed sessions.
func (r *Registry) OnFrame(fn FrameFunc) {
	r.mu.Lock()
	r.onFrame = fn
	r.mu.Unlock()
}

// OnClose installs the callback run after a session is closed, whether by
// Close or by the idle sweeper.
func (r *Registry) OnClose(fn CloseFunc) {
	r.mu.Lock()
	r.onClose = fn
	r.mu.Unlock()
}

// Limits returns the zoom range sessions of this registry enforce.
func (r *Registry) Limits() viewport.Limits {
	return r.opts.Store.ZoomLimits()
}

func (r *Registry) publish(s *Session, frame viewport.Frame) {
	r.mu.RLock()
	fn := r.onFrame
	r.mu.RUnlock()
	if fn != nil {
		fn(s.ID, frame)
	}
}

// Open starts a session. With a design id the saved scene is loaded;
// otherwise the session starts on an empty canvas.
func (r *Registry) Open(ctx context.Context, designID string) (*Session, error) {
	id := ulid.Make().String()
	s := newSession(id, designID, r.opts.Store, r.now, r.publish)

	if designID != "" {
		design, err := r.designs.Get(ctx, designID)
		if err != nil {
			return nil, err
		}
		scene, err := store.DecodeScene(design.Data)
		if err != nil {
			return nil, fmt.Errorf("design %s: %w", designID, err)
		}
		s.store.Import(scene)
		s.dirty = false
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"session_id": id,
		"design_id":  designID,
	}).Info("Session opened")
	return s, nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	return s, nil
}

// Close ends a session, committing any gesture still in flight.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	fn := r.onClose
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}

	s.close()
	if fn != nil {
		fn(id)
	}
	logrus.WithField("session_id", id).Info("Session closed")
	return nil
}

// List returns every live session, most recently active first.
func (r *Registry) List() []Info {
	out := make([]Info, 0)
	for _, s := range r.snapshot() {
		s.mu.Lock()
		out = append(out, Info{
			ID:         s.ID,
			DesignID:   s.designID,
			Layers:     s.store.Len(),
			LastActive: s.lastActive.UnixMilli(),
		})
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive == out[j].LastActive {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActive > out[j].LastActive
	})
	return out
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Tick flushes the pending frame of every session.
func (r *Registry) Tick() {
	for _, s := range r.snapshot() {
		s.Flush()
	}
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many it closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.opts.IdleTimeout)
	closed := 0
	for _, s := range r.snapshot() {
		if s.LastActive().Before(cutoff) {
			if err := r.Close(s.ID); err == nil {
				closed++
			}
		}
	}
	if closed > 0 {
		logrus.WithField("closed", closed).Info("Evicted idle sessions")
	}
	return closed
}

// Run drives the frame clock and the idle sweeper until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	frames := time.NewTicker(r.opts.FrameInterval)
	defer frames.Stop()

	every := r.opts.IdleTimeout / 2
	if every > time.Minute {
		every = time.Minute
	}
	if every < time.Second {
		every = time.Second
	}
	sweep := time.NewTicker(every)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Session clock stopped")
			return
		case <-frames.C:
			r.Tick()
		case <-sweep.C:
			r.Sweep()
		}
	}
}
