package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frytempura/tempura/internal/build"
	"github.com/frytempura/tempura/internal/catalog"
	"github.com/frytempura/tempura/internal/deploy"
	"github.com/frytempura/tempura/internal/models"
	"github.com/frytempura/tempura/internal/pipeline"
	"github.com/frytempura/tempura/internal/sse"
	"github.com/frytempura/tempura/internal/testutil"
)

// testEnv sets up a temp project, pipeline, and router for testing.
// authToken="" means auth disabled.
func testEnv(t *testing.T, authToken string, files map[string]string) (*pipeline.Pipeline, http.Handler) {
	t.Helper()
	root, store := testutil.TestProject(t)
	for name, content := range files {
		testutil.WriteFile(t, root, name, content)
	}

	builder, err := build.New(build.Options{
		SourceDir: filepath.Join(root, "scripts"),
		Target:    "es2018",
	})
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)

	p := pipeline.New(pipeline.Settings{
		SourceDir:    "scripts",
		ArtifactDir:  t.TempDir(),
		ArtifactName: "tempura.js",
	}, store, catalog.New(), builder, deploy.New(store, builder, logger), broker, logger)

	router := NewRouter(p, authToken != "", authToken, broker)
	return p, router
}

func defaultScripts() map[string]string {
	return map[string]string{
		"scripts/hello.ts": "// Greets the active note.\nexport function hello(name: string): string { return \"hi \" + name; }",
		"scripts/daily.ts": "// Opens today's daily note.\nexport function daily(): void {}",
	}
}

func TestStatusEndpoint(t *testing.T) {
	p, router := testEnv(t, "", defaultScripts())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st models.Status
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.State != models.BuildStateIdle {
		t.Errorf("state = %q, want idle before any run", st.State)
	}

	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.State != models.BuildStateSucceeded {
		t.Errorf("state = %q, want succeeded", st.State)
	}
	if len(st.Scripts) != 2 {
		t.Errorf("scripts = %d, want 2", len(st.Scripts))
	}
}

func TestListScripts(t *testing.T) {
	p, router := testEnv(t, "", defaultScripts())
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/scripts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Scripts []models.ScriptMeta `json:"scripts"`
		Total   int                 `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Scripts) != 2 {
		t.Fatalf("total = %d, scripts = %d", resp.Total, len(resp.Scripts))
	}
	// Registry order is sorted by name.
	if resp.Scripts[0].Name != "daily" || resp.Scripts[1].Name != "hello" {
		t.Errorf("order = %s, %s", resp.Scripts[0].Name, resp.Scripts[1].Name)
	}
}

func TestGetScript(t *testing.T) {
	p, router := testEnv(t, "", defaultScripts())
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/scripts/hello", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail ScriptDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Name != "hello" {
		t.Errorf("name = %q", detail.Name)
	}
	if !strings.Contains(detail.Content, "function hello") {
		t.Errorf("content = %q", detail.Content)
	}
	if detail.Description != "Greets the active note." {
		t.Errorf("description = %q", detail.Description)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scripts/absent", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("absent script status = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	p, router := testEnv(t, "", defaultScripts())
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/search?q=daily", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Results []models.ScriptMeta `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Name != "daily" {
		t.Errorf("results = %+v", resp.Results)
	}

	// Missing query parameter.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestTriggerBuild(t *testing.T) {
	_, router := testEnv(t, "", defaultScripts())

	req := httptest.NewRequest(http.MethodPost, "/build", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var st models.Status
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.State != models.BuildStateSucceeded {
		t.Errorf("state = %q, want succeeded", st.State)
	}
	if st.Trigger != "api" {
		t.Errorf("trigger = %q, want api", st.Trigger)
	}
}

func TestTriggerBuild_CompileError(t *testing.T) {
	_, router := testEnv(t, "", map[string]string{
		"scripts/broken.ts": "export function broken( {",
	})

	req := httptest.NewRequest(http.MethodPost, "/build", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "broken.ts") {
		t.Errorf("diagnostics should name the file, got %s", w.Body.String())
	}
}

func TestAuth(t *testing.T) {
	p, router := testEnv(t, "secret", defaultScripts())
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	// No token.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	// Valid token.
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
