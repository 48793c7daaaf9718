// Package sessions exposes live editing sessions over REST. Every mutating
// route answers with the frame rendered after the change.
package sessions

import (
	"encoding/json"
	"io"
	"net/http"

	"canvas-editor/editor/geometry"
	"canvas-editor/editor/interaction"
	"canvas-editor/editor/layer"
	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"
	"canvas-editor/handlers/api"
	live "canvas-editor/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	OpenRequest struct {
		DesignID string `json:"designId"`
	}

	OpenResponse struct {
		ID       string         `json:"id"`
		DesignID string         `json:"designId,omitempty"`
		Frame    viewport.Frame `json:"frame"`
	}

	SaveResponse struct {
		DesignID string `json:"designId"`
	}

	LayerResponse struct {
		ID    string         `json:"id"`
		Frame viewport.Frame `json:"frame"`
	}

	LayoutRequest struct {
		Layers []layer.Layer `json:"layers"`
	}

	LayoutResponse struct {
		IDs   []string       `json:"ids"`
		Frame viewport.Frame `json:"frame"`
	}

	SelectRequest struct {
		ID  string `json:"id"`
		Add bool   `json:"add"`
	}

	// HistoryResponse reports whether an undo or redo moved the cursor.
	HistoryResponse struct {
		Applied bool           `json:"applied"`
		Frame   viewport.Frame `json:"frame"`
	}

	AlignRequest struct {
		Edge store.Edge `json:"edge"`
	}

	DistributeRequest struct {
		Axis geometry.Axis `json:"axis"`
	}
)

// Routes mounts the session API on r.
func Routes(r chi.Router, reg *live.Registry) {
	r.Post("/", HandleOpenSession(reg))
	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", HandleGetSession(reg))
		r.Delete("/", HandleCloseSession(reg))
		r.Post("/save", HandleSaveSession(reg))
		r.Post("/events", HandleEvents(reg))
		r.Post("/wheel", HandleWheel(reg))
		r.Post("/layers", HandleAddLayer(reg))
		r.Patch("/layers", HandleUpdateLayers(reg))
		r.Post("/layouts", HandleInsertLayout(reg))
		r.Patch("/layers/{layerId}", HandleUpdateLayer(reg))
		r.Delete("/layers/{layerId}", HandleDeleteLayer(reg))
		r.Post("/layers/{layerId}/duplicate", HandleDuplicateLayer(reg))
		r.Post("/layers/{layerId}/front", HandleBringToFront(reg))
		r.Post("/layers/{layerId}/back", HandleSendToBack(reg))
		r.Post("/selection", HandleSelect(reg))
		r.Delete("/selection", HandleClearSelection(reg))
		r.Post("/undo", HandleUndo(reg))
		r.Post("/redo", HandleRedo(reg))
		r.Put("/viewport", HandleSetViewport(reg))
		r.Post("/align", HandleAlign(reg))
		r.Post("/distribute", HandleDistribute(reg))
	})
}

// session looks up the session named in the URL. It writes the error
// response itself and returns nil when there is none.
func session(w http.ResponseWriter, r *http.Request, reg *live.Registry) *live.Session {
	id := chi.URLParam(r, "sid")
	s, err := reg.Get(id)
	if err != nil {
		logrus.WithField("session_id", id).Warn("Session not found")
		api.Error(w, r, api.StatusFor(err), "Session not found")
		return nil
	}
	return s
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logrus.WithError(err).WithField("session_id", chi.URLParam(r, "sid")).Error("Failed to decode request")
		api.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func layerNotFound(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"session_id": chi.URLParam(r, "sid"),
		"layer_id":   chi.URLParam(r, "layerId"),
	}).Warn("Layer not found")
	api.Error(w, r, http.StatusNotFound, "Layer not found")
}

// HandleOpenSession starts a session, loading the design named in the body
// when there is one. An empty body opens a blank canvas.
func HandleOpenSession(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			logrus.WithError(err).Error("Failed to decode request")
			api.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		s, err := reg.Open(r.Context(), req.DesignID)
		if err != nil {
			logrus.WithError(err).WithField("design_id", req.DesignID).Error("Failed to open session")
			api.Error(w, r, api.StatusFor(err), "Failed to open session")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, OpenResponse{ID: s.ID, DesignID: s.DesignID(), Frame: s.Frame()})
	}
}

func HandleGetSession(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s := session(w, r, reg); s != nil {
			render.JSON(w, r, s.Frame())
		}
	}
}

func HandleCloseSession(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sid")
		if err := reg.Close(id); err != nil {
			logrus.WithField("session_id", id).Warn("Session not found")
			api.Error(w, r, api.StatusFor(err), "Session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleSaveSession persists the session's scene, creating a design on the
// first save of a blank session.
func HandleSaveSession(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}

		designID, err := s.Save(r.Context(), reg.Designs())
		if err != nil {
			logrus.WithError(err).WithField("session_id", s.ID).Error("Failed to save session")
			api.Error(w, r, http.StatusInternalServerError, "Failed to save session")
			return
		}
		render.JSON(w, r, SaveResponse{DesignID: designID})
	}
}

// HandleEvents feeds a batch of pointer events through the gesture
// machinery and flushes pending moves before rendering.
func HandleEvents(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var events []live.Pointer
		if !decode(w, r, &events) {
			return
		}

		s.Dispatch(events...)
		s.Flush()
		render.JSON(w, r, s.Frame())
	}
}

func HandleWheel(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var ev interaction.WheelEvent
		if !decode(w, r, &ev) {
			return
		}

		s.Wheel(ev)
		render.JSON(w, r, s.Frame())
	}
}

func HandleAddLayer(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var l layer.Layer
		if !decode(w, r, &l) {
			return
		}

		id := s.AddLayer(l)
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"layer_id":   id,
		}).Debug("Layer added")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, LayerResponse{ID: id, Frame: s.Frame()})
	}
}

// HandleInsertLayout adds a generated arrangement as a single undo step.
func HandleInsertLayout(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var req LayoutRequest
		if !decode(w, r, &req) {
			return
		}

		ids := s.InsertLayout(req.Layers)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, LayoutResponse{IDs: ids, Frame: s.Frame()})
	}
}

func HandleUpdateLayer(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var patch layer.Patch
		if !decode(w, r, &patch) {
			return
		}

		if !s.UpdateLayer(chi.URLParam(r, "layerId"), patch) {
			layerNotFound(w, r)
			return
		}
		render.JSON(w, r, s.Frame())
	}
}

// HandleUpdateLayers applies a batch of patches as one history entry.
// Unknown ids in the batch are skipped.
func HandleUpdateLayers(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var updates []store.Update
		if !decode(w, r, &updates) {
			return
		}

		s.UpdateLayers(updates)
		render.JSON(w, r, s.Frame())
	}
}

func HandleDeleteLayer(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		if !s.DeleteLayer(chi.URLParam(r, "layerId")) {
			layerNotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleDuplicateLayer(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		id, ok := s.DuplicateLayer(chi.URLParam(r, "layerId"))
		if !ok {
			layerNotFound(w, r)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, LayerResponse{ID: id, Frame: s.Frame()})
	}
}

func HandleBringToFront(reg *live.Registry) http.HandlerFunc {
	return reorder(reg, (*live.Session).BringToFront)
}

func HandleSendToBack(reg *live.Registry) http.HandlerFunc {
	return reorder(reg, (*live.Session).SendToBack)
}

func reorder(reg *live.Registry, fn func(*live.Session, string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		if !fn(s, chi.URLParam(r, "layerId")) {
			layerNotFound(w, r)
			return
		}
		render.JSON(w, r, s.Frame())
	}
}

func HandleSelect(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var req SelectRequest
		if !decode(w, r, &req) {
			return
		}

		s.Select(req.ID, req.Add)
		render.JSON(w, r, s.Frame())
	}
}

func HandleClearSelection(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		s.ClearSelection()
		render.JSON(w, r, s.Frame())
	}
}

func HandleUndo(reg *live.Registry) http.HandlerFunc {
	return step(reg, (*live.Session).Undo)
}

func HandleRedo(reg *live.Registry) http.HandlerFunc {
	return step(reg, (*live.Session).Redo)
}

func step(reg *live.Registry, fn func(*live.Session) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		applied := fn(s)
		render.JSON(w, r, HistoryResponse{Applied: applied, Frame: s.Frame()})
	}
}

// HandleSetViewport replaces the viewport. Zoom is clamped to the
// configured range.
func HandleSetViewport(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		state := viewport.DefaultState()
		if !decode(w, r, &state) {
			return
		}

		s.SetViewport(state)
		render.JSON(w, r, s.Frame())
	}
}

func HandleAlign(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var req AlignRequest
		if !decode(w, r, &req) {
			return
		}
		if !req.Edge.Valid() {
			api.Error(w, r, http.StatusBadRequest, "Unknown edge")
			return
		}

		applied := s.Align(req.Edge)
		render.JSON(w, r, HistoryResponse{Applied: applied, Frame: s.Frame()})
	}
}

func HandleDistribute(reg *live.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(w, r, reg)
		if s == nil {
			return
		}
		var req DistributeRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Axis != geometry.Horizontal && req.Axis != geometry.Vertical {
			api.Error(w, r, http.StatusBadRequest, "Unknown axis")
			return
		}

		applied := s.Distribute(req.Axis)
		render.JSON(w, r, HistoryResponse{Applied: applied, Frame: s.Frame()})
	}
}
