package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/timescope/internal/engine"
	"github.com/lazypower/timescope/internal/memoir"
	"github.com/lazypower/timescope/internal/store"
	"github.com/lazypower/timescope/internal/timeline"
)

// stubRemote answers every query with the same snapshots.
type stubRemote struct {
	snaps []memoir.Snapshot
	down  bool
}

var errOffline = errors.New("memoir offline")

func (r *stubRemote) Search(context.Context, memoir.SearchParams) (*memoir.Response, error) {
	if r.down {
		return nil, errOffline
	}
	return &memoir.Response{Snapshots: r.snaps}, nil
}

func (r *stubRemote) Range(context.Context, memoir.RangeParams) (*memoir.Response, error) {
	if r.down {
		return nil, errOffline
	}
	return &memoir.Response{Snapshots: r.snaps}, nil
}

func (r *stubRemote) Me(context.Context) (*memoir.UserInfo, error) {
	if r.down {
		return nil, errOffline
	}
	return &memoir.UserInfo{TotalSnapshots: len(r.snaps)}, nil
}

func fixtureSnapshots() []memoir.Snapshot {
	base := time.Now().UTC().Add(-10 * 24 * time.Hour).Truncate(time.Hour)
	sim := func(v float64) *float64 { return &v }
	at := func(d time.Duration) string { return base.Add(d).Format(time.RFC3339) }
	return []memoir.Snapshot{
		{MemoryID: "m1", Timestamp: at(0), Summary: "Sprint planning\nRoadmap for Q3", Similarity: sim(0.9)},
		{MemoryID: "m2", Timestamp: at(5 * 24 * time.Hour), Summary: "Code review", Similarity: sim(0.6)},
		{MemoryID: "m3", Timestamp: at(10 * 24 * time.Hour), Summary: "Retro notes", Similarity: sim(0.8)},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	srv := New(db, engine.New(db, &stubRemote{snaps: fixtureSnapshots()}), "test-version")
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["online"] != true {
		t.Errorf("online = %v, want true", body["online"])
	}
}

func TestNoEngine(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	srv := New(db, nil, "test")

	w := do(t, srv, "POST", "/api/timelines", `{"query":"standup"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestNoDatabase(t *testing.T) {
	srv := New(nil, nil, "test")

	w := do(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["db"] != false {
		t.Errorf("db = %v, want false", body["db"])
	}

	if w := do(t, srv, "GET", "/api/searches", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("searches status = %d, want 503", w.Code)
	}
}

func TestUnknownTimeline(t *testing.T) {
	srv := testServer(t)

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/timelines/nope", ""},
		{"DELETE", "/api/timelines/nope", ""},
		{"POST", "/api/timelines/nope/wheel", `{"x":1,"width":100,"delta_y":-10}`},
		{"POST", "/api/timelines/nope/drag", `{"phase":"start","x":1,"width":100}`},
		{"POST", "/api/timelines/nope/hover", `{"x":1,"width":100}`},
		{"PUT", "/api/timelines/nope/window", `{"window":"day"}`},
		{"GET", "/api/timelines/nope/ws", ""},
	}

	for _, rt := range routes {
		w := do(t, srv, rt.method, rt.path, rt.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want %d", rt.method, rt.path, w.Code, http.StatusNotFound)
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Errorf("%s %s: decode body: %v", rt.method, rt.path, err)
			continue
		}
		if body["error"] == "" {
			t.Errorf("%s %s: expected error message in body", rt.method, rt.path)
		}
	}
}

func TestSessionSweep(t *testing.T) {
	st := newSessionStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	old := st.create(timeline.New(timeline.DefaultOptions()), "old", store.SourceRemote, 0)
	now = now.Add(45 * time.Second)
	fresh := st.create(timeline.New(timeline.DefaultOptions()), "fresh", store.SourceRemote, 0)

	now = now.Add(30 * time.Second)
	if n := st.sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if _, ok := st.get(old.id); ok {
		t.Error("idle session survived sweep")
	}
	if _, ok := st.get(fresh.id); !ok {
		t.Error("fresh session was swept")
	}
}

func TestSessionTouchKeepsAlive(t *testing.T) {
	st := newSessionStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	ss := st.create(timeline.New(timeline.DefaultOptions()), "q", store.SourceRemote, 0)
	now = now.Add(50 * time.Second)
	st.get(ss.id)
	now = now.Add(50 * time.Second)
	if n := st.sweep(); n != 0 {
		t.Errorf("sweep removed %d, want 0 after touch", n)
	}
}

func TestJanitorStopIdempotent(t *testing.T) {
	srv := testServer(t)
	srv.StartJanitor(time.Hour)
	srv.Close()
	srv.Close()
}
