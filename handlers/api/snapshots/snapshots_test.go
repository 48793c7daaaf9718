package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"canvas-editor/core"
	"canvas-editor/stores/memory"

	"github.com/go-chi/chi/v5"
)

type backend interface {
	core.DesignStore
	core.SnapshotStore
}

// failingStore injects errors in front of a real in-memory store.
type failingStore struct {
	backend
	createErr   error
	listErr     error
	settingsErr error
}

func (f *failingStore) CreateSnapshot(ctx context.Context, designID, name, description, thumbnail, createdBy string, data []byte) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.backend.CreateSnapshot(ctx, designID, name, description, thumbnail, createdBy, data)
}

func (f *failingStore) ListSnapshots(ctx context.Context, designID string) ([]core.DesignSnapshot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.backend.ListSnapshots(ctx, designID)
}

func (f *failingStore) UpdateDesignSettings(ctx context.Context, designID string, maxSnapshots, autoSaveInterval int) error {
	if f.settingsErr != nil {
		return f.settingsErr
	}
	return f.backend.UpdateDesignSettings(ctx, designID, maxSnapshots, autoSaveInterval)
}

func newTestStore(t *testing.T) *failingStore {
	t.Helper()
	s := &failingStore{backend: memory.NewStore()}
	err := s.Save(context.Background(), &core.Design{ID: "d1", Name: "Poster", Data: []byte(`{"version":1,"layers":[]}`)})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return s
}

func request(method, target string, body []byte, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func createSnapshot(t *testing.T, s *failingStore, designID, name string) string {
	t.Helper()
	id, err := s.CreateSnapshot(context.Background(), designID, name, "", "", "", []byte(`{"version":1,"layers":[]}`))
	if err != nil {
		t.Fatalf("CreateSnapshot() failed: %v", err)
	}
	return id
}

func TestHandleCreateSnapshot_Success(t *testing.T) {
	store := newTestStore(t)
	handler := HandleCreateSnapshot(store, store)

	body, _ := json.Marshal(CreateSnapshotRequest{
		Name:      "Test Snapshot",
		CreatedBy: "user123",
		Data:      `{"version":1,"layers":[]}`,
	})
	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/api/v2/designs/d1/snapshots", body, map[string]string{"id": "d1"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var response CreateSnapshotResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	snap, err := store.GetSnapshot(context.Background(), response.ID)
	if err != nil || snap.Name != "Test Snapshot" || snap.DesignID != "d1" {
		t.Errorf("stored snapshot = %+v, %v", snap, err)
	}
}

func TestHandleCreateSnapshot_CapturesCurrentDesign(t *testing.T) {
	store := newTestStore(t)
	handler := HandleCreateSnapshot(store, store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/", []byte(`{"name":"auto"}`), map[string]string{"id": "d1"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var response CreateSnapshotResponse
	json.NewDecoder(rec.Body).Decode(&response)
	snap, _ := store.GetSnapshot(context.Background(), response.ID)
	if string(snap.Data) != `{"version":1,"layers":[]}` {
		t.Errorf("Data = %s, want the design's scene", snap.Data)
	}
}

func TestHandleCreateSnapshot_UnknownDesignWithoutData(t *testing.T) {
	store := newTestStore(t)
	handler := HandleCreateSnapshot(store, store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/", []byte(`{"name":"auto"}`), map[string]string{"id": "missing"}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleCreateSnapshot_InvalidJSON(t *testing.T) {
	store := newTestStore(t)
	handler := HandleCreateSnapshot(store, store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/", []byte("invalid json"), map[string]string{"id": "d1"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCreateSnapshot_InvalidSceneData(t *testing.T) {
	store := newTestStore(t)
	handler := HandleCreateSnapshot(store, store)

	body, _ := json.Marshal(CreateSnapshotRequest{Name: "bad", Data: "{not a scene"})
	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/", body, map[string]string{"id": "d1"}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCreateSnapshot_StoreError(t *testing.T) {
	store := newTestStore(t)
	store.createErr = errors.New("database error")
	handler := HandleCreateSnapshot(store, store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPost, "/", []byte(`{"name":"x"}`), map[string]string{"id": "d1"}))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandleListSnapshots_LimitAndOmitData(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 4; i++ {
		createSnapshot(t, store, "d1", "v")
	}
	handler := HandleListSnapshots(store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodGet, "/api/v2/designs/d1/snapshots?limit=2", nil, map[string]string{"id": "d1"}))

	var list []core.DesignSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
	for _, s := range list {
		if len(s.Data) != 0 {
			t.Error("list carried snapshot data")
		}
	}
}

func TestHandleListSnapshots_Empty(t *testing.T) {
	handler := HandleListSnapshots(newTestStore(t))

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "none"}))

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("Body = %s, want []", body)
	}
}

func TestHandleListSnapshots_StoreError(t *testing.T) {
	store := newTestStore(t)
	store.listErr = errors.New("database error")

	rec := httptest.NewRecorder()
	HandleListSnapshots(store)(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1"}))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandleGetSnapshotCount(t *testing.T) {
	store := newTestStore(t)
	createSnapshot(t, store, "d1", "a")
	createSnapshot(t, store, "d1", "b")

	rec := httptest.NewRecorder()
	HandleGetSnapshotCount(store)(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1"}))

	var resp map[string]int
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["count"] != 2 {
		t.Errorf("count = %d, want 2", resp["count"])
	}
}

func TestHandleGetSnapshot(t *testing.T) {
	store := newTestStore(t)
	id := createSnapshot(t, store, "d1", "v1")
	other := createSnapshot(t, store, "d2", "elsewhere")
	handler := HandleGetSnapshot(store)

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1", "snapshotId": id}))
	if rec.Code != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1", "snapshotId": other}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("snapshot of another design: got %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	handler(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1", "snapshotId": "missing"}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing snapshot: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteSnapshot(t *testing.T) {
	store := newTestStore(t)
	id := createSnapshot(t, store, "d1", "v1")
	handler := HandleDeleteSnapshot(store)
	params := map[string]string{"id": "d1", "snapshotId": id}

	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodDelete, "/", nil, params))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	handler(rec, request(http.MethodDelete, "/", nil, params))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUpdateSnapshot(t *testing.T) {
	store := newTestStore(t)
	id := createSnapshot(t, store, "d1", "Original")
	handler := HandleUpdateSnapshot(store)

	body, _ := json.Marshal(UpdateSnapshotRequest{Name: "Renamed", Description: "final"})
	rec := httptest.NewRecorder()
	handler(rec, request(http.MethodPut, "/", body, map[string]string{"id": "d1", "snapshotId": id}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	snap, _ := store.GetSnapshot(context.Background(), id)
	if snap.Name != "Renamed" || snap.Description != "final" {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = httptest.NewRecorder()
	handler(rec, request(http.MethodPut, "/", []byte("nope"), map[string]string{"id": "d1", "snapshotId": id}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid body: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleRestoreSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id, _ := store.CreateSnapshot(ctx, "d1", "v1", "", "", "", []byte(`{"version":1,"layers":[{"id":"a","type":"shape"}]}`))
	store.Save(ctx, &core.Design{ID: "d1", Name: "Poster", Data: []byte(`{"version":1,"layers":[]}`)})

	rec := httptest.NewRecorder()
	HandleRestoreSnapshot(store, store)(rec, request(http.MethodPost, "/", nil, map[string]string{"id": "d1", "snapshotId": id}))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	d, _ := store.Get(ctx, "d1")
	if d.Name != "Poster" || !strings.Contains(string(d.Data), `"id":"a"`) {
		t.Errorf("design after restore = %s %s", d.Name, d.Data)
	}
}

func TestHandleGetDesignSettings_Defaults(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleGetDesignSettings(newTestStore(t))(rec, request(http.MethodGet, "/", nil, map[string]string{"id": "d1"}))

	var settings core.DesignSettings
	if err := json.NewDecoder(rec.Body).Decode(&settings); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if settings.MaxSnapshots != 10 || settings.AutoSaveInterval != 300 {
		t.Errorf("settings = %+v, want 10/300", settings)
	}
}

func TestHandleUpdateDesignSettings_Validation(t *testing.T) {
	tests := []struct {
		name         string
		req          UpdateSettingsRequest
		wantMax      int
		wantInterval int
	}{
		{"valid", UpdateSettingsRequest{MaxSnapshots: 20, AutoSaveInterval: 600}, 20, 600},
		{"zero max", UpdateSettingsRequest{MaxSnapshots: 0, AutoSaveInterval: 600}, 10, 600},
		{"short interval", UpdateSettingsRequest{MaxSnapshots: 5, AutoSaveInterval: 30}, 5, 300},
		{"minimum interval", UpdateSettingsRequest{MaxSnapshots: 5, AutoSaveInterval: 60}, 5, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			body, _ := json.Marshal(tt.req)
			rec := httptest.NewRecorder()
			HandleUpdateDesignSettings(store)(rec, request(http.MethodPut, "/", body, map[string]string{"id": "d1"}))

			if rec.Code != http.StatusNoContent {
				t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
			}
			settings, _ := store.GetDesignSettings(context.Background(), "d1")
			if settings.MaxSnapshots != tt.wantMax || settings.AutoSaveInterval != tt.wantInterval {
				t.Errorf("settings = %+v, want %d/%d", settings, tt.wantMax, tt.wantInterval)
			}
		})
	}
}

func TestHandleUpdateDesignSettings_StoreError(t *testing.T) {
	store := newTestStore(t)
	store.settingsErr = errors.New("database error")

	rec := httptest.NewRecorder()
	HandleUpdateDesignSettings(store)(rec, request(http.MethodPut, "/", []byte(`{}`), map[string]string{"id": "d1"}))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestParseIntQuery(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 7},
		{"?n=3", 3},
		{"?n=abc", 7},
		{"?n=-2", -2},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		if got := ParseIntQuery(req, "n", 7); got != tt.want {
			t.Errorf("ParseIntQuery(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
