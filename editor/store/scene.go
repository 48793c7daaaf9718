package store

import (
	"encoding/json"
	"fmt"

	"canvas-editor/editor/layer"
	"canvas-editor/editor/viewport"

	"github.com/sirupsen/logrus"
)

// SceneVersion is the current serialized scene format.
const SceneVersion = 1

// Scene is the plain, serializable form of an editor session handed to the
// persistence layer.
type Scene struct {
	Version  int             `json:"version"`
	Layers   []layer.Layer   `json:"layers"`
	Viewport *viewport.State `json:"viewport,omitempty"`
}

// DecodeScene parses a serialized scene. Missing optional fields take their
// defaults; an empty payload decodes to an empty scene.
func DecodeScene(data []byte) (Scene, error) {
	var sc Scene
	if len(data) == 0 {
		sc.Version = SceneVersion
		return sc, nil
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scene{}, fmt.Errorf("decode scene: %w", err)
	}
	if sc.Version == 0 {
		sc.Version = SceneVersion
	}
	return sc, nil
}

// Encode serializes the scene.
func (sc Scene) Encode() ([]byte, error) {
	if sc.Layers == nil {
		sc.Layers = []layer.Layer{}
	}
	return json.Marshal(sc)
}

// Normalize clamps every layer and gives duplicate or empty ids fresh ones
// from newID, so a scene from any source satisfies the layer invariants.
func (sc Scene) Normalize(newID func() string, limits viewport.Limits) Scene {
	out := Scene{Version: SceneVersion, Layers: make([]layer.Layer, 0, len(sc.Layers))}
	seen := make(map[string]bool, len(sc.Layers))
	for _, l := range sc.Layers {
		l = l.Clone()
		if l.ID == "" || seen[l.ID] {
			old := l.ID
			l.ID = newID()
			logrus.WithFields(logrus.Fields{
				"old_id": old,
				"new_id": l.ID,
			}).Warn("Reassigned duplicate or empty layer id")
		}
		seen[l.ID] = true
		l.Normalize()
		out.Layers = append(out.Layers, l)
	}
	if sc.Viewport != nil {
		v := sc.Viewport.Normalize(limits)
		out.Viewport = &v
	}
	return out
}

// Export captures layers and viewport as a Scene.
func (s *Store) Export() Scene {
	v := s.view
	return Scene{Version: SceneVersion, Layers: s.Layers(), Viewport: &v}
}

// Import replaces the whole editor state with sc. Selection, guides and
// history are reset; the imported state becomes the first history entry.
func (s *Store) Import(sc Scene) {
	sc = sc.Normalize(s.opts.NewID, s.opts.Limits)
	s.layers = sc.Layers
	if sc.Viewport != nil {
		s.view = *sc.Viewport
	}
	s.selection = nil
	s.hover = ""
	s.guides = nil
	s.history.Reset(s.snapshot())

	logrus.WithField("layers", len(s.layers)).Debug("Scene imported")
	s.emit(ChangeLayers | ChangeSelection | ChangeViewport | ChangeGuides | ChangeHistory)
}
