package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a design, snapshot or session does
// not exist.
var ErrNotFound = errors.New("not found")

const (
	DefaultMaxSnapshots     = 10
	DefaultAutoSaveInterval = 300
	MinAutoSaveInterval     = 60
)

type (
	// Design is a saved canvas. Data holds the encoded scene and is left
	// empty in list views.
	Design struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Thumbnail string    `json:"thumbnail,omitempty"`
		Data      []byte    `json:"data,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// DesignStore persists designs.
	DesignStore interface {
		// List returns every design without its Data.
		List(ctx context.Context) ([]*Design, error)

		Get(ctx context.Context, id string) (*Design, error)

		// Save creates the design or replaces an existing one, keeping the
		// original CreatedAt.
		Save(ctx context.Context, design *Design) error

		Delete(ctx context.Context, id string) error
	}

	// DesignSnapshot is a named version of a design.
	DesignSnapshot struct {
		ID          string `json:"id"`
		DesignID    string `json:"design_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Thumbnail   string `json:"thumbnail"`
		CreatedBy   string `json:"created_by"`
		CreatedAt   int64  `json:"created_at"`
		Data        []byte `json:"data,omitempty"`
	}

	// DesignSettings controls snapshot retention for one design.
	DesignSettings struct {
		DesignID         string `json:"design_id"`
		MaxSnapshots     int    `json:"max_snapshots"`
		AutoSaveInterval int    `json:"auto_save_interval"`
	}

	// SnapshotStore is implemented by the backends that keep design history.
	SnapshotStore interface {
		CreateSnapshot(ctx context.Context, designID, name, description, thumbnail, createdBy string, data []byte) (string, error)
		ListSnapshots(ctx context.Context, designID string) ([]DesignSnapshot, error)
		GetSnapshot(ctx context.Context, id string) (*DesignSnapshot, error)
		DeleteSnapshot(ctx context.Context, id string) error
		UpdateSnapshotMetadata(ctx context.Context, id, name, description string) error
		GetDesignSettings(ctx context.Context, designID string) (*DesignSettings, error)
		UpdateDesignSettings(ctx context.Context, designID string, maxSnapshots, autoSaveInterval int) error
	}
)

// DefaultSettings returns the retention settings of a design that has none
// stored.
func DefaultSettings(designID string) *DesignSettings {
	return &DesignSettings{
		DesignID:         designID,
		MaxSnapshots:     DefaultMaxSnapshots,
		AutoSaveInterval: DefaultAutoSaveInterval,
	}
}
