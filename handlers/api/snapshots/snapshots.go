package snapshots

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"canvas-editor/core"
	"canvas-editor/editor/store"
	"canvas-editor/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// CreateSnapshotRequest names a new version. Data is the encoded scene;
	// when empty the design's current scene is captured.
	CreateSnapshotRequest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Thumbnail   string `json:"thumbnail"`
		CreatedBy   string `json:"created_by"`
		Data        string `json:"data"`
	}

	CreateSnapshotResponse struct {
		ID string `json:"id"`
	}

	UpdateSnapshotRequest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	UpdateSettingsRequest struct {
		MaxSnapshots     int `json:"max_snapshots"`
		AutoSaveInterval int `json:"auto_save_interval"`
	}
)

// HandleCreateSnapshot stores a new version of a design
func HandleCreateSnapshot(snapshots core.SnapshotStore, designs core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designID := chi.URLParam(r, "id")
		log := logrus.WithField("design_id", designID)

		var req CreateSnapshotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.WithError(err).Error("Failed to decode request")
			api.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		data := []byte(req.Data)
		if len(data) == 0 {
			design, err := designs.Get(r.Context(), designID)
			if err != nil {
				log.WithError(err).Warn("Failed to load design for snapshot")
				api.Error(w, r, api.StatusFor(err), "Design not found")
				return
			}
			data = design.Data
		} else if _, err := store.DecodeScene(data); err != nil {
			log.WithError(err).Warn("Rejected undecodable snapshot data")
			api.Error(w, r, http.StatusBadRequest, "Invalid scene data")
			return
		}

		id, err := snapshots.CreateSnapshot(r.Context(), designID, req.Name, req.Description, req.Thumbnail, req.CreatedBy, data)
		if err != nil {
			log.WithError(err).Error("Failed to create snapshot")
			api.Error(w, r, http.StatusInternalServerError, "Failed to create snapshot")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateSnapshotResponse{ID: id})
	}
}

// HandleListSnapshots lists the versions of a design, newest first. An
// optional ?limit= caps the result.
func HandleListSnapshots(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designID := chi.URLParam(r, "id")

		list, err := snapshots.ListSnapshots(r.Context(), designID)
		if err != nil {
			logrus.WithError(err).WithField("design_id", designID).Error("Failed to list snapshots")
			api.Error(w, r, http.StatusInternalServerError, "Failed to list snapshots")
			return
		}
		if list == nil {
			list = []core.DesignSnapshot{}
		}
		if limit := ParseIntQuery(r, "limit", 0); limit > 0 && limit < len(list) {
			list = list[:limit]
		}

		render.JSON(w, r, list)
	}
}

// HandleGetSnapshotCount returns how many versions a design has
func HandleGetSnapshotCount(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designID := chi.URLParam(r, "id")

		list, err := snapshots.ListSnapshots(r.Context(), designID)
		if err != nil {
			logrus.WithError(err).WithField("design_id", designID).Error("Failed to list snapshots")
			api.Error(w, r, http.StatusInternalServerError, "Failed to get snapshot count")
			return
		}

		render.JSON(w, r, map[string]int{"count": len(list)})
	}
}

// snapshotOf loads a snapshot and checks it belongs to the design in the
// URL. It writes the error response itself and returns nil on failure.
func snapshotOf(w http.ResponseWriter, r *http.Request, snapshots core.SnapshotStore) *core.DesignSnapshot {
	designID := chi.URLParam(r, "id")
	snapshotID := chi.URLParam(r, "snapshotId")

	snap, err := snapshots.GetSnapshot(r.Context(), snapshotID)
	if err == nil && snap.DesignID != designID {
		err = core.ErrNotFound
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":       err,
			"design_id":   designID,
			"snapshot_id": snapshotID,
		}).Warn("Failed to get snapshot")
		api.Error(w, r, api.StatusFor(err), "Snapshot not found")
		return nil
	}
	return snap
}

// HandleGetSnapshot returns one version including its data
func HandleGetSnapshot(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if snap := snapshotOf(w, r, snapshots); snap != nil {
			render.JSON(w, r, snap)
		}
	}
}

func HandleDeleteSnapshot(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := snapshotOf(w, r, snapshots)
		if snap == nil {
			return
		}

		if err := snapshots.DeleteSnapshot(r.Context(), snap.ID); err != nil {
			logrus.WithError(err).WithField("snapshot_id", snap.ID).Error("Failed to delete snapshot")
			api.Error(w, r, api.StatusFor(err), "Failed to delete snapshot")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleUpdateSnapshot renames a version
func HandleUpdateSnapshot(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshotID := chi.URLParam(r, "snapshotId")

		var req UpdateSnapshotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			api.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		if snapshotOf(w, r, snapshots) == nil {
			return
		}
		if err := snapshots.UpdateSnapshotMetadata(r.Context(), snapshotID, req.Name, req.Description); err != nil {
			logrus.WithError(err).WithField("snapshot_id", snapshotID).Error("Failed to update snapshot")
			api.Error(w, r, api.StatusFor(err), "Failed to update snapshot")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRestoreSnapshot copies a version back into its design, keeping the
// design's name and thumbnail.
func HandleRestoreSnapshot(snapshots core.SnapshotStore, designs core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := snapshotOf(w, r, snapshots)
		if snap == nil {
			return
		}
		log := logrus.WithFields(logrus.Fields{
			"design_id":   snap.DesignID,
			"snapshot_id": snap.ID,
		})

		design := &core.Design{ID: snap.DesignID, Name: snap.DesignID, Data: snap.Data}
		existing, err := designs.Get(r.Context(), snap.DesignID)
		switch {
		case err == nil:
			design.Name = existing.Name
			design.Thumbnail = existing.Thumbnail
		case !errors.Is(err, core.ErrNotFound):
			log.WithError(err).Error("Failed to load design for restore")
			api.Error(w, r, http.StatusInternalServerError, "Failed to restore snapshot")
			return
		}

		if err := designs.Save(r.Context(), design); err != nil {
			log.WithError(err).Error("Failed to restore snapshot")
			api.Error(w, r, http.StatusInternalServerError, "Failed to restore snapshot")
			return
		}

		log.Info("Snapshot restored")
		design.Data = nil
		render.JSON(w, r, design)
	}
}

func HandleGetDesignSettings(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designID := chi.URLParam(r, "id")

		settings, err := snapshots.GetDesignSettings(r.Context(), designID)
		if err != nil {
			logrus.WithError(err).WithField("design_id", designID).Error("Failed to get design settings")
			api.Error(w, r, http.StatusInternalServerError, "Failed to get design settings")
			return
		}

		render.JSON(w, r, settings)
	}
}

// HandleUpdateDesignSettings stores retention settings. Out of range values
// fall back to the defaults.
func HandleUpdateDesignSettings(snapshots core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		designID := chi.URLParam(r, "id")

		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Error("Failed to decode request")
			api.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.MaxSnapshots < 1 {
			req.MaxSnapshots = core.DefaultMaxSnapshots
		}
		if req.AutoSaveInterval < core.MinAutoSaveInterval {
			req.AutoSaveInterval = core.DefaultAutoSaveInterval
		}

		if err := snapshots.UpdateDesignSettings(r.Context(), designID, req.MaxSnapshots, req.AutoSaveInterval); err != nil {
			logrus.WithError(err).WithField("design_id", designID).Error("Failed to update design settings")
			api.Error(w, r, http.StatusInternalServerError, "Failed to update design settings")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ParseIntQuery parses an integer query parameter
func ParseIntQuery(r *http.Request, param string, defaultValue int) int {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}
