package designs

import (
	"io"
	"net/http"

	"canvas-editor/core"
	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"
	"canvas-editor/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func HandleListDesigns(designs core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := designs.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list designs")
			api.Error(w, r, http.StatusInternalServerError, "Failed to list designs")
			return
		}
		if list == nil {
			list = []*core.Design{}
		}
		render.JSON(w, r, list)
	}
}

// HandleGetDesign writes the stored scene of a design.
func HandleGetDesign(designs core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		design, err := designs.Get(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":     err,
				"design_id": id,
			}).Warn("Failed to get design")
			api.Error(w, r, api.StatusFor(err), "Design not found")
			return
		}

		scene, err := store.DecodeScene(design.Data)
		if err != nil {
			logrus.WithError(err).WithField("design_id", id).Error("Stored design does not decode")
			api.Error(w, r, http.StatusInternalServerError, "Design data is corrupt")
			return
		}
		render.JSON(w, r, scene)
	}
}

// HandleSaveDesign stores the scene in the body under the design id. The
// scene is repaired before it is stored: layers are clamped and duplicate
// ids replaced. The name comes from ?name=, else the existing design, else
// the id. Zoom is clamped to limits.
func HandleSaveDesign(designs core.DesignStore, limits viewport.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := logrus.WithField("design_id", id)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.WithError(err).Error("Failed to read request body")
			api.Error(w, r, http.StatusBadRequest, "Failed to read request body")
			return
		}
		defer r.Body.Close()

		scene, err := store.DecodeScene(body)
		if err != nil {
			log.WithError(err).Warn("Rejected undecodable scene")
			api.Error(w, r, http.StatusBadRequest, "Invalid scene")
			return
		}
		data, err := scene.Normalize(uuid.NewString, limits).Encode()
		if err != nil {
			log.WithError(err).Error("Failed to encode scene")
			api.Error(w, r, http.StatusInternalServerError, "Failed to encode scene")
			return
		}

		design := &core.Design{ID: id, Name: r.URL.Query().Get("name"), Data: data}
		if existing, err := designs.Get(r.Context(), id); err == nil {
			if design.Name == "" {
				design.Name = existing.Name
			}
			design.Thumbnail = existing.Thumbnail
		}
		if design.Name == "" {
			design.Name = id
		}

		if err := designs.Save(r.Context(), design); err != nil {
			log.WithError(err).Error("Failed to save design")
			api.Error(w, r, http.StatusInternalServerError, "Failed to save design")
			return
		}

		resp := *design
		resp.Data = nil
		render.JSON(w, r, &resp)
	}
}

func HandleDeleteDesign(designs core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := designs.Delete(r.Context(), id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":     err,
				"design_id": id,
			}).Error("Failed to delete design")
			api.Error(w, r, api.StatusFor(err), "Failed to delete design")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
