package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canvas-editor/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS designs (
		id TEXT PRIMARY KEY,
		name TEXT,
		thumbnail TEXT,
		data BLOB,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		design_id TEXT NOT NULL,
		name TEXT,
		description TEXT,
		thumbnail TEXT,
		created_by TEXT,
		created_at INTEGER NOT NULL,
		data BLOB NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS snapshots_design ON snapshots (design_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS design_settings (
		design_id TEXT PRIMARY KEY,
		max_snapshots INTEGER DEFAULT 10,
		auto_save_interval INTEGER DEFAULT 300
	);`,
}

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens the database and creates the tables it needs.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time keeps sqlite from reporting busy
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.Design, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, thumbnail, created_at, updated_at FROM designs ORDER BY updated_at DESC")
	if err != nil {
		logrus.WithError(err).Error("Failed to list designs")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close design rows")
		}
	}()

	designs := make([]*core.Design, 0)
	for rows.Next() {
		var d core.Design
		var name, thumbnail sql.NullString
		if err := rows.Scan(&d.ID, &name, &thumbnail, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Name = name.String
		d.Thumbnail = thumbnail.String
		designs = append(designs, &d)
	}
	return designs, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*core.Design, error) {
	log := logrus.WithField("design_id", id)
	log.Debug("Retrieving design by ID")

	d := core.Design{ID: id}
	var name, thumbnail sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT name, thumbnail, data, created_at, updated_at FROM designs WHERE id = ?", id,
	).Scan(&name, &thumbnail, &d.Data, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Design not found")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve design")
		return nil, err
	}
	d.Name = name.String
	d.Thumbnail = thumbnail.String

	log.Info("Design retrieved successfully")
	return &d, nil
}

func (s *sqliteStore) Save(ctx context.Context, design *core.Design) error {
	if design.ID == "" {
		return fmt.Errorf("design id cannot be empty")
	}
	log := logrus.WithFields(logrus.Fields{
		"design_id":   design.ID,
		"data_length": len(design.Data),
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM designs WHERE id = ?", design.ID).Scan(&createdAt)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			"UPDATE designs SET name = ?, thumbnail = ?, data = ?, updated_at = ? WHERE id = ?",
			design.Name, design.Thumbnail, design.Data, now, design.ID)
	case errors.Is(err, sql.ErrNoRows):
		createdAt = now
		_, err = tx.ExecContext(ctx,
			"INSERT INTO designs (id, name, thumbnail, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			design.ID, design.Name, design.Thumbnail, design.Data, now, now)
	}
	if err != nil {
		log.WithError(err).Error("Failed to save design")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	design.CreatedAt = createdAt
	design.UpdatedAt = now
	log.Info("Design saved successfully")
	return nil
}

// Delete removes a design together with its snapshots and settings.
func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	log := logrus.WithField("design_id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM designs WHERE id = ?", id)
	if err != nil {
		log.WithError(err).Error("Failed to delete design")
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		log.Warn("Design not found for deletion")
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE design_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM design_settings WHERE design_id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("Design deleted successfully")
	return nil
}
