// ABOUTME: Tests for the HTTP API router
// ABOUTME: Serves requests through httptest against an in-memory store
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sisyph/mcoder/internal/metrics"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Storage, *metrics.Metrics) {
	t.Helper()
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	store.SetVerdictHook(m.ObserveVerdict)
	srv := httptest.NewServer(NewServer(store, m, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, store, m
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body map[string]string
	if code := getJSON(t, srv, "/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "up" {
		t.Errorf("body = %v", body)
	}
}

func TestHealth_ClosedStore(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_ = store.Close()

	var body map[string]string
	if code := getJSON(t, srv, "/healthz", &body); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body["status"] != "down" {
		t.Errorf("body = %v", body)
	}
}

func TestProjectRoutes(t *testing.T) {
	srv, store, _ := newTestServer(t)
	id, err := store.CreateProject("api", "served over http")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(id, "user", "build the parser", "text", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetModuleStatus(id, "parser", "done", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SetModuleStatus(id, "lexer", "in_progress", ""); err != nil {
		t.Fatal(err)
	}

	var list struct {
		Projects []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"projects"`
	}
	getJSON(t, srv, "/api/projects", &list)
	if len(list.Projects) != 1 || list.Projects[0].Name != "api" {
		t.Errorf("projects = %+v", list.Projects)
	}

	var progress struct {
		Progress float64 `json:"progress"`
	}
	getJSON(t, srv, "/api/projects/1/progress", &progress)
	if progress.Progress != 50 {
		t.Errorf("progress = %v, want 50", progress.Progress)
	}

	var history struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	getJSON(t, srv, "/api/projects/1/messages?limit=5", &history)
	if len(history.Messages) != 1 || history.Messages[0].Content != "build the parser" {
		t.Errorf("messages = %+v", history.Messages)
	}

	var modules struct {
		Modules []json.RawMessage `json:"modules"`
	}
	getJSON(t, srv, "/api/projects/1/modules", &modules)
	if len(modules.Modules) != 2 {
		t.Errorf("modules = %d, want 2", len(modules.Modules))
	}

	if code := getJSON(t, srv, "/api/projects/1", nil); code != http.StatusOK {
		t.Errorf("project status code = %d", code)
	}
	if code := getJSON(t, srv, "/api/projects/1/files", nil); code != http.StatusOK {
		t.Errorf("files code = %d", code)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/projects/99", http.StatusNotFound},
		{"/api/projects/99/progress", http.StatusNotFound},
		{"/api/projects/abc", http.StatusNotFound},
		{"/api/projects/1/messages?limit=0", http.StatusBadRequest},
		{"/api/search", http.StatusBadRequest},
		{"/api/search?q=%20%20", http.StatusBadRequest},
		{"/api/search?q=x&project=-1", http.StatusBadRequest},
		{"/api/security/events?limit=many", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := getJSON(t, srv, tt.path, nil); got != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestSearchAndLedger(t *testing.T) {
	srv, store, _ := newTestServer(t)
	id, _ := store.CreateProject("search", "")
	_, _ = store.AddMessage(id, "user", "Parser parser parser", "text", 1)
	_, _ = store.AddMessage(id, "user", "one parser", "text", 1)
	_, _ = store.AddMessage(id, "user", "unrelated", "text", 1)

	var found struct {
		Count int `json:"count"`
	}
	getJSON(t, srv, "/api/search?q=parser", &found)
	if found.Count != 2 {
		t.Errorf("count = %d, want 2", found.Count)
	}

	// the query is matched verbatim, surrounding spaces included
	found.Count = -1
	getJSON(t, srv, "/api/search?q=%20one", &found)
	if found.Count != 0 {
		t.Errorf("count for leading-space query = %d, want 0", found.Count)
	}

	var events struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	getJSON(t, srv, "/api/security/events?limit=2", &events)
	if len(events.Events) != 2 || events.Events[0].Action != sqlite.ActionAddMessage {
		t.Errorf("events = %+v", events.Events)
	}
}

func TestSystemRoutes(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, _ = store.SetSystemModuleStatus("auto_build", "in_progress", "")
	_, _ = store.SetSystemModuleStatus("auto_build", "done", "ok")

	var current struct {
		Modules []struct {
			Status string `json:"status"`
		} `json:"modules"`
	}
	getJSON(t, srv, "/api/system/modules", &current)
	if len(current.Modules) != 1 || current.Modules[0].Status != "done" {
		t.Errorf("modules = %+v", current.Modules)
	}

	var history struct {
		History []json.RawMessage `json:"history"`
	}
	getJSON(t, srv, "/api/system/history?module=auto_build", &history)
	if len(history.History) != 2 {
		t.Errorf("history = %d entries, want 2", len(history.History))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, store, m := newTestServer(t)
	if _, err := store.CreateProject("metered", ""); err != nil {
		t.Fatal(err)
	}
	getJSON(t, srv, "/api/projects", nil)
	getJSON(t, srv, "/api/projects/1", nil)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/projects", "200")); got != 1 {
		t.Errorf("/api/projects requests = %v, want 1", got)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `mcoder_classifier_verdicts_total{action="create_project",risk="LOW"} 1`) {
		t.Error("verdict counter missing from /metrics")
	}
}

func TestRoutes_NoMetrics(t *testing.T) {
	store, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := httptest.NewRecorder()
	NewServer(store, nil, nil).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without collectors = %d, want 404", rec.Code)
	}
}
