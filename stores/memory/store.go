package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"canvas-editor/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements DesignStore and SnapshotStore in process memory.
type memStore struct {
	mu        sync.RWMutex
	designs   map[string]*core.Design
	snapshots map[string]core.DesignSnapshot
	settings  map[string]core.DesignSettings
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		designs:   make(map[string]*core.Design),
		snapshots: make(map[string]core.DesignSnapshot),
		settings:  make(map[string]core.DesignSettings),
	}
}

func (s *memStore) List(ctx context.Context) ([]*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	designs := make([]*core.Design, 0, len(s.designs))
	for _, d := range s.designs {
		// list views carry no scene data
		designs = append(designs, &core.Design{
			ID:        d.ID,
			Name:      d.Name,
			Thumbnail: d.Thumbnail,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})

	logrus.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("design_id", id)
	d, ok := s.designs[id]
	if !ok {
		log.Warn("Design not found")
		return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}

	cp := *d
	cp.Data = append([]byte(nil), d.Data...)
	log.Info("Design retrieved successfully")
	return &cp, nil
}

func (s *memStore) Save(ctx context.Context, design *core.Design) error {
	if design.ID == "" {
		return fmt.Errorf("design id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.designs[design.ID]; ok {
		design.CreatedAt = existing.CreatedAt
	} else {
		design.CreatedAt = now
	}
	design.UpdatedAt = now

	cp := *design
	cp.Data = append([]byte(nil), design.Data...)
	s.designs[design.ID] = &cp

	logrus.WithFields(logrus.Fields{
		"design_id":   design.ID,
		"data_length": len(design.Data),
	}).Info("Design saved successfully")
	return nil
}

// Delete removes a design together with its snapshots and settings.
func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("design_id", id)
	if _, ok := s.designs[id]; !ok {
		log.Warn("Design not found for deletion")
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}

	delete(s.designs, id)
	delete(s.settings, id)
	for sid, snap := range s.snapshots {
		if snap.DesignID == id {
			delete(s.snapshots, sid)
		}
	}
	log.Info("Design deleted successfully")
	return nil
}

// CreateSnapshot stores a new version, pruning the oldest ones beyond the
// design's max_snapshots.
func (s *memStore) CreateSnapshot(ctx context.Context, designID, name, description, thumbnail, createdBy string, data []byte) (string, error) {
	id := ulid.Make().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"snapshot_id": id,
		"design_id":   designID,
		"data_length": len(data),
	})

	settings := s.settingsLocked(designID)
	existing := s.listLocked(designID)
	keep := max(settings.MaxSnapshots-1, 0)
	if len(existing) > keep {
		// existing is newest first
		for _, old := range existing[keep:] {
			delete(s.snapshots, old.ID)
			log.WithField("pruned_id", old.ID).Debug("Pruned oldest snapshot")
		}
	}

	s.snapshots[id] = core.DesignSnapshot{
		ID:          id,
		DesignID:    designID,
		Name:        name,
		Description: description,
		Thumbnail:   thumbnail,
		CreatedBy:   createdBy,
		CreatedAt:   int64(ulid.Now()),
		Data:        append([]byte(nil), data...),
	}

	log.Info("Snapshot created successfully")
	return id, nil
}

func (s *memStore) ListSnapshots(ctx context.Context, designID string) ([]core.DesignSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.listLocked(designID)
	for i := range snapshots {
		snapshots[i].Data = nil
	}
	logrus.WithField("design_id", designID).Info("Snapshots listed successfully")
	return snapshots, nil
}

// listLocked returns the snapshots of a design, newest first. ULIDs sort by
// creation time.
func (s *memStore) listLocked(designID string) []core.DesignSnapshot {
	out := make([]core.DesignSnapshot, 0)
	for _, snap := range s.snapshots {
		if snap.DesignID == designID {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *memStore) GetSnapshot(ctx context.Context, id string) (*core.DesignSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		logrus.WithField("snapshot_id", id).Warn("Snapshot not found")
		return nil, fmt.Errorf("snapshot %s: %w", id, core.ErrNotFound)
	}
	snap.Data = append([]byte(nil), snap.Data...)
	return &snap, nil
}

func (s *memStore) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[id]; !ok {
		return fmt.Errorf("snapshot %s: %w", id, core.ErrNotFound)
	}
	delete(s.snapshots, id)
	logrus.WithField("snapshot_id", id).Info("Snapshot deleted successfully")
	return nil
}

func (s *memStore) UpdateSnapshotMetadata(ctx context.Context, id, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %s: %w", id, core.ErrNotFound)
	}
	snap.Name = name
	snap.Description = description
	s.snapshots[id] = snap
	logrus.WithField("snapshot_id", id).Info("Snapshot metadata updated successfully")
	return nil
}

func (s *memStore) GetDesignSettings(ctx context.Context, designID string) (*core.DesignSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.settingsLocked(designID)
	return &settings, nil
}

func (s *memStore) settingsLocked(designID string) core.DesignSettings {
	if settings, ok := s.settings[designID]; ok {
		return settings
	}
	return *core.DefaultSettings(designID)
}

func (s *memStore) UpdateDesignSettings(ctx context.Context, designID string, maxSnapshots, autoSaveInterval int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[designID] = core.DesignSettings{
		DesignID:         designID,
		MaxSnapshots:     maxSnapshots,
		AutoSaveInterval: autoSaveInterval,
	}
	logrus.WithFields(logrus.Fields{
		"design_id":          designID,
		"max_snapshots":      maxSnapshots,
		"auto_save_interval": autoSaveInterval,
	}).Info("Design settings updated successfully")
	return nil
}
