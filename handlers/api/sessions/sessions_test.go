package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"canvas-editor/core"
	"canvas-editor/editor/layer"
	"canvas-editor/editor/viewport"
	live "canvas-editor/sessions"
	"canvas-editor/stores/memory"

	"github.com/go-chi/chi/v5"
)

type testServer struct {
	t       *testing.T
	reg     *live.Registry
	designs core.DesignStore
	router  chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	designs := memory.NewStore()
	reg := live.NewRegistry(designs, live.Options{})
	r := chi.NewRouter()
	r.Route("/api/v2/sessions", func(r chi.Router) {
		Routes(r, reg)
	})
	return &testServer{t: t, reg: reg, designs: designs, router: r}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) open() string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/v2/sessions/", nil)
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("open: status %d, body %s", rec.Code, rec.Body)
	}
	var resp OpenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		ts.t.Fatalf("decode open response: %v", err)
	}
	return resp.ID
}

func (ts *testServer) addLayer(sid string, l layer.Layer) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers", l)
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("add layer: status %d, body %s", rec.Code, rec.Body)
	}
	var resp LayerResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.ID
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) viewport.Frame {
	t.Helper()
	var f viewport.Frame
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func itemOf(f viewport.Frame, id string) (viewport.Item, bool) {
	for _, it := range f.Items {
		if it.Layer.ID == id {
			return it, true
		}
	}
	return viewport.Item{}, false
}

func TestHandleOpenSession_Empty(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	rec := ts.do(http.MethodGet, "/api/v2/sessions/"+sid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	f := decodeFrame(t, rec)
	if len(f.Items) != 0 || f.Viewport.Zoom != 1 {
		t.Errorf("frame = %+v, want empty canvas at zoom 1", f)
	}
}

func TestHandleOpenSession_FromDesign(t *testing.T) {
	ts := newTestServer(t)
	data := []byte(`{"version":1,"layers":[{"id":"a","type":"shape","x":10,"y":10,"width":50,"height":50}]}`)
	ts.designs.Save(context.Background(), &core.Design{ID: "d1", Name: "Poster", Data: data})

	rec := ts.do(http.MethodPost, "/api/v2/sessions/", OpenRequest{DesignID: "d1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var resp OpenResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.DesignID != "d1" {
		t.Errorf("DesignID = %q, want d1", resp.DesignID)
	}
	if _, ok := itemOf(resp.Frame, "a"); !ok {
		t.Error("frame is missing the stored layer")
	}
}

func TestHandleOpenSession_UnknownDesign(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v2/sessions/", OpenRequest{DesignID: "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleOpenSession_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v2/sessions/", "{oops")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleGetSession_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v2/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleCloseSession(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	if rec := ts.do(http.MethodDelete, "/api/v2/sessions/"+sid, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec := ts.do(http.MethodDelete, "/api/v2/sessions/"+sid, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second close: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleEvents_DragSnapsAndUndoes(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	id := ts.addLayer(sid, layer.New("a", layer.TypeShape, 100, 100, 100, 100))

	events := []live.Pointer{
		{Kind: live.PointerDown, X: 150, Y: 150},
		{Kind: live.PointerMove, X: 193, Y: 171},
		{Kind: live.PointerUp, X: 193, Y: 171},
	}
	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/events", events)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	it, _ := itemOf(decodeFrame(t, rec), id)
	if it.Layer.X != 140 || it.Layer.Y != 120 {
		t.Errorf("position = (%v, %v), want (140, 120)", it.Layer.X, it.Layer.Y)
	}
	if !it.Selected {
		t.Error("dragged layer is not selected")
	}

	rec = ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/undo", nil)
	var resp HistoryResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	it, _ = itemOf(resp.Frame, id)
	if !resp.Applied || it.Layer.X != 100 || it.Layer.Y != 100 {
		t.Errorf("after undo: applied=%v position=(%v, %v), want (100, 100)", resp.Applied, it.Layer.X, it.Layer.Y)
	}

	rec = ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/redo", nil)
	json.NewDecoder(rec.Body).Decode(&resp)
	it, _ = itemOf(resp.Frame, id)
	if it.Layer.X != 140 {
		t.Errorf("after redo: x = %v, want 140", it.Layer.X)
	}
}

func TestHandleEvents_InvalidBody(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/events", `{"kind":"down"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleWheel_Zoom(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/wheel", map[string]any{"deltaY": -1, "modifier": true})
	f := decodeFrame(t, rec)
	if f.Viewport.Zoom != 1.1 {
		t.Errorf("Zoom = %v, want 1.1", f.Viewport.Zoom)
	}
}

func TestHandleAddLayer_ClampsSize(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers", `{"type":"shape","x":5,"y":5,"width":3,"height":-4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var resp LayerResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	it, ok := itemOf(resp.Frame, resp.ID)
	if !ok || it.Layer.Width != layer.MinSize || it.Layer.Height != layer.MinSize {
		t.Errorf("layer = %+v, want clamped to %v", it.Layer, layer.MinSize)
	}
}

func TestHandleInsertLayout_SingleUndo(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	req := LayoutRequest{Layers: []layer.Layer{
		layer.New("", layer.TypeShape, 0, 0, 100, 100),
		layer.New("", layer.TypeText, 0, 120, 200, 40),
		layer.New("", layer.TypeImage, 220, 0, 100, 100),
	}}
	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layouts", req)
	var resp LayoutResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.IDs) != 3 || len(resp.Frame.Items) != 3 {
		t.Fatalf("inserted %d ids, %d items; want 3", len(resp.IDs), len(resp.Frame.Items))
	}

	ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/undo", nil)
	f := decodeFrame(t, ts.do(http.MethodGet, "/api/v2/sessions/"+sid, nil))
	if len(f.Items) != 0 {
		t.Errorf("after undo: %d items, want 0", len(f.Items))
	}
}

func TestHandleUpdateLayer(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	id := ts.addLayer(sid, layer.New("", layer.TypeShape, 0, 0, 100, 100))

	rec := ts.do(http.MethodPatch, "/api/v2/sessions/"+sid+"/layers/"+id, `{"opacity":0.4,"rotation":-90}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	it, _ := itemOf(decodeFrame(t, rec), id)
	if it.Layer.Opacity != 0.4 || it.Layer.Rotation != 270 {
		t.Errorf("layer = %+v, want opacity 0.4 rotation 270", it.Layer)
	}

	rec = ts.do(http.MethodPatch, "/api/v2/sessions/"+sid+"/layers/missing", `{"x":1}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown layer: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUpdateLayers_Batch(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	a := ts.addLayer(sid, layer.New("a", layer.TypeShape, 0, 0, 50, 50))
	b := ts.addLayer(sid, layer.New("b", layer.TypeShape, 0, 0, 50, 50))

	body := `[{"id":"a","patch":{"x":10}},{"id":"b","patch":{"y":30}},{"id":"zzz","patch":{"x":1}}]`
	f := decodeFrame(t, ts.do(http.MethodPatch, "/api/v2/sessions/"+sid+"/layers", body))

	ia, _ := itemOf(f, a)
	ib, _ := itemOf(f, b)
	if ia.Layer.X != 10 || ib.Layer.Y != 30 {
		t.Errorf("a.x = %v, b.y = %v; want 10, 30", ia.Layer.X, ib.Layer.Y)
	}
}

func TestHandleDeleteLayer(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	id := ts.addLayer(sid, layer.New("", layer.TypeShape, 0, 0, 50, 50))

	if rec := ts.do(http.MethodDelete, "/api/v2/sessions/"+sid+"/layers/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec := ts.do(http.MethodDelete, "/api/v2/sessions/"+sid+"/layers/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDuplicateLayer(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	id := ts.addLayer(sid, layer.New("", layer.TypeShape, 40, 40, 50, 50))

	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers/"+id+"/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var resp LayerResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	dup, ok := itemOf(resp.Frame, resp.ID)
	if !ok || resp.ID == id || dup.Layer.X != 60 || dup.Layer.Y != 60 {
		t.Errorf("duplicate = %+v, want a new layer at (60, 60)", dup.Layer)
	}

	if rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers/missing/duplicate", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown layer: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleReorder(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	a := ts.addLayer(sid, layer.New("a", layer.TypeShape, 0, 0, 50, 50))
	b := ts.addLayer(sid, layer.New("b", layer.TypeShape, 0, 0, 50, 50))
	ts.do(http.MethodPatch, "/api/v2/sessions/"+sid+"/layers/"+b, `{"zIndex":1}`)

	f := decodeFrame(t, ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers/"+a+"/front", nil))
	if last := f.Items[len(f.Items)-1]; last.Layer.ID != a {
		t.Errorf("topmost = %s, want %s", last.Layer.ID, a)
	}

	f = decodeFrame(t, ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers/"+a+"/back", nil))
	if first := f.Items[0]; first.Layer.ID != a {
		t.Errorf("bottom = %s, want %s", first.Layer.ID, a)
	}

	if rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/layers/missing/front", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown layer: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleSelection(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	a := ts.addLayer(sid, layer.New("a", layer.TypeShape, 0, 0, 50, 50))
	b := ts.addLayer(sid, layer.New("b", layer.TypeShape, 100, 0, 50, 50))

	ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/selection", SelectRequest{ID: a})
	f := decodeFrame(t, ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/selection", SelectRequest{ID: b, Add: true}))
	if len(f.Selection) != 2 {
		t.Errorf("Selection = %v, want both layers", f.Selection)
	}

	f = decodeFrame(t, ts.do(http.MethodDelete, "/api/v2/sessions/"+sid+"/selection", nil))
	if len(f.Selection) != 0 {
		t.Errorf("Selection = %v, want empty", f.Selection)
	}
}

func TestHandleUndo_NothingToUndo(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	var resp HistoryResponse
	json.NewDecoder(ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/undo", nil).Body).Decode(&resp)
	if resp.Applied {
		t.Error("undo on a fresh session reported applied")
	}
}

func TestHandleSetViewport_ClampsZoom(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()

	f := decodeFrame(t, ts.do(http.MethodPut, "/api/v2/sessions/"+sid+"/viewport", `{"zoom":9,"panX":15,"tool":"hand"}`))
	if f.Viewport.Zoom != 4 || f.Viewport.PanX != 15 || f.Viewport.Tool != viewport.ToolHand {
		t.Errorf("viewport = %+v, want zoom 4, panX 15, hand tool", f.Viewport)
	}
}

func TestHandleAlign(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	a := ts.addLayer(sid, layer.New("a", layer.TypeShape, 40, 0, 50, 50))
	b := ts.addLayer(sid, layer.New("b", layer.TypeShape, 100, 100, 50, 50))
	ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/selection", SelectRequest{ID: a})
	ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/selection", SelectRequest{ID: b, Add: true})

	var resp HistoryResponse
	json.NewDecoder(ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/align", AlignRequest{Edge: "left"}).Body).Decode(&resp)
	ib, _ := itemOf(resp.Frame, b)
	if !resp.Applied || ib.Layer.X != 40 {
		t.Errorf("applied=%v b.x=%v, want true, 40", resp.Applied, ib.Layer.X)
	}

	if rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/align", AlignRequest{Edge: "diagonal"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown edge: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleDistribute(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	ids := []string{
		ts.addLayer(sid, layer.New("a", layer.TypeShape, 0, 0, 100, 50)),
		ts.addLayer(sid, layer.New("b", layer.TypeShape, 120, 0, 100, 50)),
		ts.addLayer(sid, layer.New("c", layer.TypeShape, 400, 0, 100, 50)),
	}
	for i, id := range ids {
		ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/selection", SelectRequest{ID: id, Add: i > 0})
	}

	var resp HistoryResponse
	json.NewDecoder(ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/distribute", DistributeRequest{Axis: "horizontal"}).Body).Decode(&resp)
	ib, _ := itemOf(resp.Frame, ids[1])
	if !resp.Applied || ib.Layer.X != 200 {
		t.Errorf("applied=%v b.x=%v, want true, 200", resp.Applied, ib.Layer.X)
	}

	if rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/distribute", DistributeRequest{Axis: "depth"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown axis: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleSaveSession(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.open()
	ts.addLayer(sid, layer.New("a", layer.TypeShape, 0, 0, 50, 50))

	rec := ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var resp SaveResponse
	json.NewDecoder(rec.Body).Decode(&resp)

	d, err := ts.designs.Get(context.Background(), resp.DesignID)
	if err != nil {
		t.Fatalf("saved design missing: %v", err)
	}
	if !bytes.Contains(d.Data, []byte(`"id":"a"`)) {
		t.Errorf("saved data = %s, want layer a", d.Data)
	}

	var again SaveResponse
	json.NewDecoder(ts.do(http.MethodPost, "/api/v2/sessions/"+sid+"/save", nil).Body).Decode(&again)
	if again.DesignID != resp.DesignID {
		t.Errorf("second save went to %s, want %s", again.DesignID, resp.DesignID)
	}
}
