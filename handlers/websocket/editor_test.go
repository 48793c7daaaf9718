package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"canvas-editor/sessions"
	"canvas-editor/stores/memory"
)

func resetActiveSessions() {
	sessionsMutex.Lock()
	activeSessions = make(map[string]int)
	sessionsMutex.Unlock()
}

func TestSetConnected(t *testing.T) {
	resetActiveSessions()

	setConnected("s1", 2)
	setConnected("s2", 1)
	setConnected("s2", 0)

	got := GetActiveSessions()
	if len(got) != 1 || got["s1"] != 2 {
		t.Errorf("GetActiveSessions() = %v, want map[s1:2]", got)
	}

	got["s1"] = 99
	if GetActiveSessions()["s1"] != 2 {
		t.Error("GetActiveSessions returned the live map")
	}
}

func TestExtractAck(t *testing.T) {
	var gotPayload map[string]any
	callback := func(payload map[string]any) { gotPayload = payload }

	ack, args := extractAck([]any{"s1", callback})
	if ack == nil {
		t.Fatal("ack not detected")
	}
	if len(args) != 1 || args[0] != "s1" {
		t.Errorf("args = %v, want [s1]", args)
	}

	ack(nil, map[string]any{"status": "ok"})
	if gotPayload["status"] != "ok" {
		t.Errorf("payload = %v", gotPayload)
	}
}

func TestExtractAck_NoCallback(t *testing.T) {
	ack, args := extractAck([]any{"s1", map[string]any{"x": 1}})
	if ack != nil {
		t.Error("ack detected on a plain payload")
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want both arguments", args)
	}

	if ack, args := extractAck(nil); ack != nil || len(args) != 0 {
		t.Error("empty arguments produced an ack")
	}
}

func TestWrapAck_ErrorFirst(t *testing.T) {
	var (
		gotErr     error
		gotPayload map[string]any
	)
	ack := wrapAck(func(err error, payload map[string]any) {
		gotErr, gotPayload = err, payload
	})

	want := errors.New("boom")
	ack(want, map[string]any{"status": "error"})
	if gotErr != want || gotPayload["status"] != "error" {
		t.Errorf("got (%v, %v)", gotErr, gotPayload)
	}
}

func TestWrapAck_SingleArgumentGetsError(t *testing.T) {
	var got any
	ack := wrapAck(func(v any) { got = v })

	ack(errors.New("no session"), map[string]any{"status": "error"})
	if err, ok := got.(error); !ok || err.Error() != "no session" {
		t.Errorf("got %v, want the error", got)
	}
}

func TestDecodePointers_Single(t *testing.T) {
	arg := map[string]any{"kind": "down", "x": 10.0, "y": 20.0, "shift": true}

	got, err := decodePointers(arg)
	if err != nil {
		t.Fatalf("decodePointers() error = %v", err)
	}
	if len(got) != 1 || got[0].Kind != sessions.PointerDown || got[0].X != 10 || !got[0].Shift {
		t.Errorf("decodePointers() = %+v", got)
	}
}

func TestDecodePointers_Batch(t *testing.T) {
	arg := []any{
		map[string]any{"kind": "down", "x": 1.0, "y": 1.0},
		map[string]any{"kind": "move", "x": 5.0, "y": 5.0},
		map[string]any{"kind": "up", "x": 5.0, "y": 5.0},
	}

	got, err := decodePointers(arg)
	if err != nil {
		t.Fatalf("decodePointers() error = %v", err)
	}
	if len(got) != 3 || got[2].Kind != sessions.PointerUp {
		t.Errorf("decodePointers() = %+v", got)
	}
}

func TestDecodePointers_Invalid(t *testing.T) {
	tests := []struct {
		name string
		arg  any
	}{
		{"missing kind", map[string]any{"x": 1.0}},
		{"wrong type", "down"},
		{"bad batch", []any{"down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodePointers(tt.arg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSessionArg(t *testing.T) {
	reg := sessions.NewRegistry(memory.NewStore(), sessions.Options{})
	s, err := reg.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got, err := sessionArg(reg, []any{s.ID}); err != nil || got != s {
		t.Errorf("sessionArg() = %v, %v", got, err)
	}
	for _, args := range [][]any{nil, {42}, {""}, {"unknown"}} {
		if _, err := sessionArg(reg, args); err == nil {
			t.Errorf("sessionArg(%v) expected an error", args)
		}
	}
}

func TestHandleActiveSessions(t *testing.T) {
	resetActiveSessions()
	reg := sessions.NewRegistry(memory.NewStore(), sessions.Options{})
	quiet, _ := reg.Open(context.Background(), "")
	busy, _ := reg.Open(context.Background(), "")
	setConnected(busy.ID, 3)

	rec := httptest.NewRecorder()
	HandleActiveSessions(reg)(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/active", nil))

	var list []ActiveSession
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != busy.ID || list[0].Users != 3 {
		t.Errorf("first = %+v, want %s with 3 users", list[0], busy.ID)
	}
	if list[1].ID != quiet.ID || list[1].Users != 0 {
		t.Errorf("second = %+v, want %s with 0 users", list[1], quiet.ID)
	}
}

func TestSetupSocketIO_ClosedSessionsLeaveActiveList(t *testing.T) {
	resetActiveSessions()
	reg := sessions.NewRegistry(memory.NewStore(), sessions.Options{})
	SetupSocketIO(reg)

	s, err := reg.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	setConnected(s.ID, 2)

	if err := reg.Close(s.ID); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := GetActiveSessions()[s.ID]; ok {
		t.Errorf("closed session %s still counted as active", s.ID)
	}
}
