package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "editor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadEditor_OverridesAndDefaults(t *testing.T) {
	path := writeFile(t, "grid_size: 10\nzoom:\n  min_zoom: 0.25\n  max_zoom: 8\nhistory_limit: 50\n")

	e, err := LoadEditor(path)
	if err != nil {
		t.Fatalf("LoadEditor() error = %v", err)
	}
	if e.GridSize != 10 {
		t.Errorf("GridSize = %v, want 10", e.GridSize)
	}
	if e.Zoom.MinZoom != 0.25 || e.Zoom.MaxZoom != 8 {
		t.Errorf("Zoom = %+v, want 0.25..8", e.Zoom)
	}
	if e.Zoom.ZoomStep != 0.1 {
		t.Errorf("ZoomStep = %v, want default 0.1", e.Zoom.ZoomStep)
	}
	if e.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", e.HistoryLimit)
	}
	if e.FrameRate != 60 || e.LockedOpacity != 0.5 || e.DuplicateOffset != 20 {
		t.Errorf("defaults lost: %+v", e)
	}
}

func TestLoadEditor_RepairsInvalidValues(t *testing.T) {
	path := writeFile(t, "grid_size: -4\nzoom:\n  min_zoom: 5\n  max_zoom: 1\nlocked_opacity: 3\nframe_rate: 0\n")

	e, err := LoadEditor(path)
	if err != nil {
		t.Fatalf("LoadEditor() error = %v", err)
	}
	d := DefaultEditor()
	if e.GridSize != d.GridSize || e.Zoom != d.Zoom || e.LockedOpacity != d.LockedOpacity || e.FrameRate != d.FrameRate {
		t.Errorf("LoadEditor() = %+v, want defaults for invalid keys", e)
	}
}

func TestLoadEditor_Errors(t *testing.T) {
	if _, err := LoadEditor(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadEditor(writeFile(t, "grid_size: [oops\n")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("DATA_SOURCE_NAME", "test.db")
	t.Setenv("SESSION_IDLE_TIMEOUT", "90")
	t.Setenv("EDITOR_CONFIG", writeFile(t, "grid_size: 8\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageType != "sqlite" || cfg.DataSourceName != "test.db" {
		t.Errorf("storage = %q %q", cfg.StorageType, cfg.DataSourceName)
	}
	if cfg.SessionIdle != 90*time.Second {
		t.Errorf("SessionIdle = %v, want 90s", cfg.SessionIdle)
	}
	if cfg.Editor.GridSize != 8 {
		t.Errorf("GridSize = %v, want 8", cfg.Editor.GridSize)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")
	t.Setenv("EDITOR_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageType != "memory" {
		t.Errorf("StorageType = %q, want memory", cfg.StorageType)
	}
	if cfg.SessionIdle != 30*time.Minute {
		t.Errorf("SessionIdle = %v, want 30m", cfg.SessionIdle)
	}
}

func TestFrameInterval(t *testing.T) {
	e := DefaultEditor()
	if got := e.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() = %v", got)
	}
	e.FrameRate = 0
	if got := e.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() with zero rate = %v", got)
	}
}
