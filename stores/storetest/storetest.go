// Package storetest holds the behaviour every design store backend must
// share. Backend packages run these suites from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"canvas-editor/core"
)

// DesignStore runs the DesignStore suite against stores built by newStore.
// Each subtest gets a fresh store.
func DesignStore(t *testing.T, newStore func(t *testing.T) core.DesignStore) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		d := &core.Design{ID: "d1", Name: "Poster", Thumbnail: "thumb", Data: []byte(`{"version":1,"layers":[]}`)}
		if err := s.Save(ctx, d); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
			t.Error("Save() did not stamp timestamps")
		}

		got, err := s.Get(ctx, "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.Name != "Poster" || got.Thumbnail != "thumb" || string(got.Data) != string(d.Data) {
			t.Errorf("Get() = %+v", got)
		}
	})

	t.Run("SaveKeepsCreatedAt", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, &core.Design{ID: "d1", Name: "v1", Data: []byte("1")}); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		first, err := s.Get(ctx, "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}

		time.Sleep(10 * time.Millisecond)
		if err := s.Save(ctx, &core.Design{ID: "d1", Name: "v2", Data: []byte("2")}); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		second, err := s.Get(ctx, "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if second.Name != "v2" || string(second.Data) != "2" {
			t.Errorf("update not applied: %+v", second)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
		}
		if second.UpdatedAt.Before(first.UpdatedAt) {
			t.Error("UpdatedAt went backwards")
		}
	})

	t.Run("SaveRequiresID", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, &core.Design{Name: "nameless"}); err == nil {
			t.Error("Save() should reject an empty id")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListOmitsData", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"a", "b", "c"} {
			if err := s.Save(ctx, &core.Design{ID: id, Name: id, Data: []byte("scene")}); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("List() returned %d designs, want 3", len(list))
		}
		for _, d := range list {
			if len(d.Data) != 0 {
				t.Errorf("List() carried data for %s", d.ID)
			}
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("List() = %d designs, want 0", len(list))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, &core.Design{ID: "d1", Data: []byte("x")}); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if err := s.Delete(ctx, "d1"); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := s.Get(ctx, "d1"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "d1"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}

// SnapshotStore runs the SnapshotStore suite.
func SnapshotStore(t *testing.T, newStore func(t *testing.T) core.SnapshotStore) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		id, err := s.CreateSnapshot(ctx, "d1", "First", "desc", "thumb", "alice", []byte("scene"))
		if err != nil {
			t.Fatalf("CreateSnapshot() failed: %v", err)
		}
		if id == "" {
			t.Fatal("CreateSnapshot() returned an empty id")
		}

		snap, err := s.GetSnapshot(ctx, id)
		if err != nil {
			t.Fatalf("GetSnapshot() failed: %v", err)
		}
		if snap.DesignID != "d1" || snap.Name != "First" || snap.Description != "desc" ||
			snap.Thumbnail != "thumb" || snap.CreatedBy != "alice" || string(snap.Data) != "scene" {
			t.Errorf("GetSnapshot() = %+v", snap)
		}
		if snap.CreatedAt == 0 {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetSnapshot(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListNewestFirstWithoutData", func(t *testing.T) {
		s := newStore(t)
		var ids []string
		for i := 0; i < 4; i++ {
			id, err := s.CreateSnapshot(ctx, "d1", "v", "", "", "", []byte("scene"))
			if err != nil {
				t.Fatalf("CreateSnapshot() failed: %v", err)
			}
			ids = append(ids, id)
		}
		if _, err := s.CreateSnapshot(ctx, "other", "v", "", "", "", []byte("scene")); err != nil {
			t.Fatalf("CreateSnapshot() failed: %v", err)
		}

		list, err := s.ListSnapshots(ctx, "d1")
		if err != nil {
			t.Fatalf("ListSnapshots() failed: %v", err)
		}
		if len(list) != 4 {
			t.Fatalf("ListSnapshots() = %d, want 4", len(list))
		}
		if list[0].ID != ids[3] || list[3].ID != ids[0] {
			t.Errorf("ListSnapshots() not newest first: %v", list)
		}
		for _, snap := range list {
			if len(snap.Data) != 0 {
				t.Error("ListSnapshots() carried data")
			}
		}
	})

	t.Run("PrunesBeyondMax", func(t *testing.T) {
		s := newStore(t)
		if err := s.UpdateDesignSettings(ctx, "d1", 3, 300); err != nil {
			t.Fatalf("UpdateDesignSettings() failed: %v", err)
		}
		var ids []string
		for i := 0; i < 5; i++ {
			id, err := s.CreateSnapshot(ctx, "d1", "v", "", "", "", []byte("scene"))
			if err != nil {
				t.Fatalf("CreateSnapshot() failed: %v", err)
			}
			ids = append(ids, id)
		}

		list, err := s.ListSnapshots(ctx, "d1")
		if err != nil {
			t.Fatalf("ListSnapshots() failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("ListSnapshots() = %d, want 3", len(list))
		}
		for _, old := range ids[:2] {
			if _, err := s.GetSnapshot(ctx, old); err == nil {
				t.Errorf("snapshot %s should have been pruned", old)
			}
		}
	})

	t.Run("DeleteSnapshot", func(t *testing.T) {
		s := newStore(t)
		id, err := s.CreateSnapshot(ctx, "d1", "v", "", "", "", []byte("scene"))
		if err != nil {
			t.Fatalf("CreateSnapshot() failed: %v", err)
		}
		if err := s.DeleteSnapshot(ctx, id); err != nil {
			t.Fatalf("DeleteSnapshot() failed: %v", err)
		}
		if err := s.DeleteSnapshot(ctx, id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("second DeleteSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateMetadata", func(t *testing.T) {
		s := newStore(t)
		id, err := s.CreateSnapshot(ctx, "d1", "Original", "Original Desc", "", "", []byte("scene"))
		if err != nil {
			t.Fatalf("CreateSnapshot() failed: %v", err)
		}
		if err := s.UpdateSnapshotMetadata(ctx, id, "Updated", "New Desc"); err != nil {
			t.Fatalf("UpdateSnapshotMetadata() failed: %v", err)
		}
		snap, err := s.GetSnapshot(ctx, id)
		if err != nil {
			t.Fatalf("GetSnapshot() failed: %v", err)
		}
		if snap.Name != "Updated" || snap.Description != "New Desc" {
			t.Errorf("metadata not updated: %+v", snap)
		}
		if string(snap.Data) != "scene" {
			t.Error("UpdateSnapshotMetadata() touched the data")
		}
		if err := s.UpdateSnapshotMetadata(ctx, "missing", "x", "y"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("UpdateSnapshotMetadata() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("SettingsDefaultsAndUpdate", func(t *testing.T) {
		s := newStore(t)
		settings, err := s.GetDesignSettings(ctx, "d1")
		if err != nil {
			t.Fatalf("GetDesignSettings() failed: %v", err)
		}
		if settings.MaxSnapshots != 10 || settings.AutoSaveInterval != 300 {
			t.Errorf("defaults = %+v, want 10/300", settings)
		}

		if err := s.UpdateDesignSettings(ctx, "d1", 20, 600); err != nil {
			t.Fatalf("UpdateDesignSettings() failed: %v", err)
		}
		if err := s.UpdateDesignSettings(ctx, "d1", 25, 900); err != nil {
			t.Fatalf("UpdateDesignSettings() failed: %v", err)
		}
		settings, err = s.GetDesignSettings(ctx, "d1")
		if err != nil {
			t.Fatalf("GetDesignSettings() failed: %v", err)
		}
		if settings.DesignID != "d1" || settings.MaxSnapshots != 25 || settings.AutoSaveInterval != 900 {
			t.Errorf("settings = %+v, want d1 25/900", settings)
		}
	})
}
