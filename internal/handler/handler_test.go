package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"forcegraph/internal/domain"
	"forcegraph/internal/engine"
	"forcegraph/internal/repository/sqlite"
	"forcegraph/internal/service"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	g := domain.NewGraphData()
	g.AddNode(domain.Record{"id": "hub", "name": "Hub", "fx": 0, "fy": 0, "fz": 0})
	g.AddNode(domain.Record{"id": "leaf", "name": "Leaf"})
	g.AddLink(domain.Record{"source": "hub", "target": "leaf"})

	cfg := engine.DefaultConfig()
	cfg.Data = g

	svc, err := service.NewLayoutService(service.NewEventBus(), cfg, service.Options{
		Repo:          repo,
		FrameInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	mux := http.NewServeMux()
	NewLayoutHandler(svc).Register(mux)
	srv := httptest.NewServer(Chain(mux, Recover, CORS, Logger))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func do(t *testing.T, method, url, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

// ============================================================================
// Graph Tests
// ============================================================================

func TestGetGraph(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name        string
		query       string
		contentType string
		contains    string
	}{
		{"json", "", "application/json", `"id":"hub"`},
		{"yaml", "?format=yaml", "application/yaml", "id: hub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/api/graph"+tt.query, "", "")
			assertStatus(t, resp, http.StatusOK)
			if ct := resp.Header.Get("Content-Type"); ct != tt.contentType {
				t.Errorf("expected content type %s, got %s", tt.contentType, ct)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("expected body to contain %q:\n%s", tt.contains, body)
			}
		})
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/graph?format=xml", "", "")
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestIngestGraph(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		nodes       int
	}{
		{"json", "application/json", `{"nodes":[{"id":"a"},{"id":"b"},{"id":"c"}],"links":[]}`, 3},
		{"yaml", "application/yaml", "nodes:\n  - id: a\nedges: []\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/graph", tt.contentType, tt.body)
			assertStatus(t, resp, http.StatusAccepted)

			var stats engine.Stats
			decode(t, resp, &stats)
			if stats.Nodes != tt.nodes {
				t.Errorf("expected %d nodes, got %d", tt.nodes, stats.Nodes)
			}
			if stats.State != engine.StateStepping {
				t.Errorf("expected stepping, got %s", stats.State)
			}
		})
	}
}

func TestIngestGraphInvalid(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/graph", "application/json", `{"nodes":`)
	assertStatus(t, resp, http.StatusBadRequest)

	var errResp ErrorResponse
	decode(t, resp, &errResp)
	if errResp.Error != "Invalid graph payload" {
		t.Errorf("unexpected error: %+v", errResp)
	}
}

func TestReloadWithoutURL(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/reload", "", "")
	assertStatus(t, resp, http.StatusBadRequest)
}

// ============================================================================
// Config Tests
// ============================================================================

func TestGetConfig(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/config", "", "")
	assertStatus(t, resp, http.StatusOK)

	var view ConfigView
	decode(t, resp, &view)
	if view.Dimensions != 3 {
		t.Errorf("expected 3 dimensions, got %d", view.Dimensions)
	}
	if view.CooldownTicks != nil {
		t.Errorf("expected unbounded cooldown ticks, got %d", *view.CooldownTicks)
	}
	if view.CooldownTime != 15000 {
		t.Errorf("expected 15000ms, got %d", view.CooldownTime)
	}
}

func TestUpdateConfig(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/config", "application/json",
		`{"dimensions": 2, "cooldown_ticks": 50, "auto_color_by": "group"}`)
	assertStatus(t, resp, http.StatusOK)

	var view ConfigView
	decode(t, resp, &view)
	if view.Dimensions != 2 {
		t.Errorf("expected 2 dimensions, got %d", view.Dimensions)
	}
	if view.CooldownTicks == nil || *view.CooldownTicks != 50 {
		t.Errorf("expected 50 cooldown ticks, got %v", view.CooldownTicks)
	}
	if view.AutoColorBy != "group" {
		t.Errorf("expected group, got %q", view.AutoColorBy)
	}

	stats := do(t, http.MethodGet, srv.URL+"/api/stats", "", "")
	var s engine.Stats
	decode(t, stats, &s)
	if s.Nodes != 2 {
		t.Errorf("expected payload to survive reconfiguration, got %d nodes", s.Nodes)
	}
}

func TestUpdateConfigInvalid(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"dimensions", `{"dimensions": 4}`},
		{"warmup", `{"warmup_ticks": -1}`},
		{"malformed", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPut, srv.URL+"/api/config", "application/json", tt.body)
			assertStatus(t, resp, http.StatusBadRequest)
		})
	}
}

// ============================================================================
// Snapshot Tests
// ============================================================================

func TestSnapshotLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/snapshots", "", "")
	assertStatus(t, resp, http.StatusCreated)
	var snap domain.LayoutSnapshot
	decode(t, resp, &snap)
	if snap.ID == "" || len(snap.Nodes) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/snapshots", "", "")
	assertStatus(t, resp, http.StatusOK)
	var list []domain.SnapshotSummary
	decode(t, resp, &list)
	found := false
	for _, s := range list {
		if s.ID == snap.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("snapshot %s missing from list", snap.ID)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/snapshots/"+snap.ID+"?format=yaml", "", "")
	assertStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "node_id: hub") {
		t.Errorf("expected YAML snapshot, got:\n%s", body)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/snapshots/"+snap.ID, "", "")
	assertStatus(t, resp, http.StatusNoContent)

	resp = do(t, http.MethodGet, srv.URL+"/api/snapshots/"+snap.ID, "", "")
	assertStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodDelete, srv.URL+"/api/snapshots/"+snap.ID, "", "")
	assertStatus(t, resp, http.StatusNotFound)
}

func TestListSnapshotsInvalidLimit(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/snapshots?limit=-2", "", "")
	assertStatus(t, resp, http.StatusBadRequest)
}

// ============================================================================
// Camera Tests
// ============================================================================

func TestCameraAndTooltip(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/camera", "application/json",
		`{"position": [0, 0, 200], "target": [0, 0, 0]}`)
	assertStatus(t, resp, http.StatusOK)
	var tip TooltipResponse
	decode(t, resp, &tip)
	if tip.Text != "Hub" {
		t.Errorf("expected Hub, got %q", tip.Text)
	}

	resp = do(t, http.MethodPut, srv.URL+"/api/camera", "application/json",
		`{"position": [900, 900, 200], "target": [900, 900, 0]}`)
	assertStatus(t, resp, http.StatusOK)
	decode(t, resp, &tip)
	if tip.Text != "" {
		t.Errorf("expected empty tooltip, got %q", tip.Text)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/tooltip", "", "")
	assertStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodPut, srv.URL+"/api/camera", "application/json",
		`{"position": [1, 1, 1], "target": [1, 1, 1]}`)
	assertStatus(t, resp, http.StatusBadRequest)
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestRecover(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/graph", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestLoggerKeepsFlusher(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	var flushable bool
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if !flushable {
		t.Error("expected logged writer to implement http.Flusher")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
