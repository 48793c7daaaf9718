// Package config loads server settings from the environment (optionally
// seeded from a .env file) and editor settings from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"canvas-editor/editor/store"
	"canvas-editor/editor/viewport"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		StorageType      string
		LocalStoragePath string
		DataSourceName   string
		S3BucketName     string
		SessionIdle      time.Duration
		Editor           Editor
	}

	// Editor holds the tunables of the editing core.
	Editor struct {
		GridSize        float64         `yaml:"grid_size"`
		Zoom            viewport.Limits `yaml:"zoom"`
		GuideThreshold  float64         `yaml:"guide_threshold"`
		HistoryLimit    int             `yaml:"history_limit"`
		DuplicateOffset float64         `yaml:"duplicate_offset"`
		LockedOpacity   float64         `yaml:"locked_opacity"`
		FrameRate       int             `yaml:"frame_rate"`
	}
)

// DefaultEditor returns the built-in editor settings.
func DefaultEditor() Editor {
	return Editor{
		GridSize:        20,
		Zoom:            viewport.DefaultLimits,
		GuideThreshold:  5,
		HistoryLimit:    100,
		DuplicateOffset: 20,
		LockedOpacity:   0.5,
		FrameRate:       60,
	}
}

// StoreOptions converts the settings into options for a new editor store.
func (e Editor) StoreOptions() store.Options {
	return store.Options{
		GridSize:        e.GridSize,
		Limits:          e.Zoom,
		HistoryLimit:    e.HistoryLimit,
		DuplicateOffset: e.DuplicateOffset,
		LockedOpacity:   e.LockedOpacity,
		GuideThreshold:  e.GuideThreshold,
	}
}

// FrameInterval is the period of the session frame ticker.
func (e Editor) FrameInterval() time.Duration {
	if e.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(e.FrameRate)
}

// Load reads .env when present, then the environment, then the YAML file
// named by EDITOR_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := &Config{
		StorageType:      getEnv("STORAGE_TYPE", "memory"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./data"),
		DataSourceName:   getEnv("DATA_SOURCE_NAME", "canvas.db"),
		S3BucketName:     os.Getenv("S3_BUCKET_NAME"),
		SessionIdle:      getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		Editor:           DefaultEditor(),
	}

	if path := os.Getenv("EDITOR_CONFIG"); path != "" {
		editor, err := LoadEditor(path)
		if err != nil {
			return nil, err
		}
		cfg.Editor = editor
	}
	return cfg, nil
}

// LoadEditor reads editor settings from a YAML file. Keys missing from the
// file keep their defaults.
func LoadEditor(path string) (Editor, error) {
	e := DefaultEditor()
	data, err := os.ReadFile(path)
	if err != nil {
		return e, fmt.Errorf("read editor config: %w", err)
	}
	if err := yaml.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("parse editor config %s: %w", path, err)
	}
	e.normalize()

	logrus.WithFields(logrus.Fields{
		"path":      path,
		"grid_size": e.GridSize,
		"zoom_min":  e.Zoom.MinZoom,
		"zoom_max":  e.Zoom.MaxZoom,
	}).Info("Editor config loaded")
	return e, nil
}

func (e *Editor) normalize() {
	d := DefaultEditor()
	if e.GridSize <= 0 {
		e.GridSize = d.GridSize
	}
	if e.Zoom.MinZoom <= 0 || e.Zoom.MaxZoom < e.Zoom.MinZoom {
		e.Zoom = d.Zoom
	}
	if e.Zoom.ZoomStep <= 0 {
		e.Zoom.ZoomStep = d.Zoom.ZoomStep
	}
	if e.GuideThreshold <= 0 {
		e.GuideThreshold = d.GuideThreshold
	}
	if e.HistoryLimit <= 0 {
		e.HistoryLimit = d.HistoryLimit
	}
	if e.LockedOpacity <= 0 || e.LockedOpacity > 1 {
		e.LockedOpacity = d.LockedOpacity
	}
	if e.FrameRate <= 0 {
		e.FrameRate = d.FrameRate
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	logrus.WithField(key, value).Warn("Invalid duration, using default")
	return defaultVal
}
