package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"canvas-editor/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// CreateSnapshot stores a new version of a design, first pruning the oldest
// ones so at most max_snapshots remain.
func (s *sqliteStore) CreateSnapshot(ctx context.Context, designID, name, description, thumbnail, createdBy string, data []byte) (string, error) {
	id := ulid.Make().String()
	createdAt := ulid.Now()

	log := logrus.WithFields(logrus.Fields{
		"snapshot_id": id,
		"design_id":   designID,
		"data_length": len(data),
	})

	settings, err := s.GetDesignSettings(ctx, designID)
	if err != nil {
		settings = core.DefaultSettings(designID)
	}
	keep := max(settings.MaxSnapshots-1, 0)

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE design_id = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE design_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`,
		designID, designID, keep)
	if err != nil {
		log.WithError(err).Error("Failed to prune old snapshots")
	}

	if data == nil {
		data = []byte{}
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (id, design_id, name, description, thumbnail, created_by, created_at, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, designID, name, description, thumbnail, createdBy, createdAt, data)
	if err != nil {
		log.WithError(err).Error("Failed to create snapshot")
		return "", err
	}

	log.Info("Snapshot created successfully")
	return id, nil
}

// ListSnapshots returns the versions of a design without their data, newest
// first.
func (s *sqliteStore) ListSnapshots(ctx context.Context, designID string) ([]core.DesignSnapshot, error) {
	log := logrus.WithField("design_id", designID)
	log.Debug("Listing snapshots for design")

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, design_id, name, description, thumbnail, created_by, created_at FROM snapshots WHERE design_id = ? ORDER BY created_at DESC, id DESC",
		designID)
	if err != nil {
		log.WithError(err).Error("Failed to list snapshots")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close snapshot rows")
		}
	}()

	snapshots := make([]core.DesignSnapshot, 0)
	for rows.Next() {
		var snap core.DesignSnapshot
		var name, description, thumbnail, createdBy sql.NullString
		if err := rows.Scan(&snap.ID, &snap.DesignID, &name, &description, &thumbnail, &createdBy, &snap.CreatedAt); err != nil {
			log.WithError(err).Error("Failed to scan snapshot")
			continue
		}
		snap.Name = name.String
		snap.Description = description.String
		snap.Thumbnail = thumbnail.String
		snap.CreatedBy = createdBy.String
		snapshots = append(snapshots, snap)
	}

	log.Info("Snapshots listed successfully")
	return snapshots, rows.Err()
}

func (s *sqliteStore) GetSnapshot(ctx context.Context, id string) (*core.DesignSnapshot, error) {
	log := logrus.WithField("snapshot_id", id)
	log.Debug("Retrieving snapshot by ID")

	var snap core.DesignSnapshot
	var name, description, thumbnail, createdBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, design_id, name, description, thumbnail, created_by, created_at, data FROM snapshots WHERE id = ?",
		id).Scan(&snap.ID, &snap.DesignID, &name, &description, &thumbnail, &createdBy, &snap.CreatedAt, &snap.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Snapshot not found")
			return nil, fmt.Errorf("snapshot %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve snapshot")
		return nil, err
	}
	snap.Name = name.String
	snap.Description = description.String
	snap.Thumbnail = thumbnail.String
	snap.CreatedBy = createdBy.String

	log.Info("Snapshot retrieved successfully")
	return &snap, nil
}

func (s *sqliteStore) DeleteSnapshot(ctx context.Context, id string) error {
	log := logrus.WithField("snapshot_id", id)

	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		log.WithError(err).Error("Failed to delete snapshot")
		return err
	}
	return expectRow(result, "snapshot", id, log, "Snapshot deleted successfully")
}

func (s *sqliteStore) UpdateSnapshotMetadata(ctx context.Context, id, name, description string) error {
	log := logrus.WithField("snapshot_id", id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE snapshots SET name = ?, description = ? WHERE id = ?",
		name, description, id)
	if err != nil {
		log.WithError(err).Error("Failed to update snapshot metadata")
		return err
	}
	return expectRow(result, "snapshot", id, log, "Snapshot metadata updated successfully")
}

func expectRow(result sql.Result, kind, id string, log *logrus.Entry, msg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	log.Info(msg)
	return nil
}

// GetDesignSettings returns the stored settings, or the defaults when the
// design has none.
func (s *sqliteStore) GetDesignSettings(ctx context.Context, designID string) (*core.DesignSettings, error) {
	log := logrus.WithField("design_id", designID)

	var settings core.DesignSettings
	err := s.db.QueryRowContext(ctx,
		"SELECT design_id, max_snapshots, auto_save_interval FROM design_settings WHERE design_id = ?",
		designID).Scan(&settings.DesignID, &settings.MaxSnapshots, &settings.AutoSaveInterval)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("No settings found for design, returning defaults")
			return core.DefaultSettings(designID), nil
		}
		log.WithError(err).Error("Failed to retrieve design settings")
		return nil, err
	}
	return &settings, nil
}

func (s *sqliteStore) UpdateDesignSettings(ctx context.Context, designID string, maxSnapshots, autoSaveInterval int) error {
	log := logrus.WithFields(logrus.Fields{
		"design_id":          designID,
		"max_snapshots":      maxSnapshots,
		"auto_save_interval": autoSaveInterval,
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO design_settings (design_id, max_snapshots, auto_save_interval) VALUES (?, ?, ?) ON CONFLICT(design_id) DO UPDATE SET max_snapshots = excluded.max_snapshots, auto_save_interval = excluded.auto_save_interval",
		designID, maxSnapshots, autoSaveInterval)
	if err != nil {
		log.WithError(err).Error("Failed to update design settings")
		return err
	}

	log.Info("Design settings updated successfully")
	return nil
}
