package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/frytempura/tempura/internal/build"
	"github.com/frytempura/tempura/internal/catalog"
	"github.com/frytempura/tempura/internal/deploy"
	"github.com/frytempura/tempura/internal/pipeline"
	"github.com/frytempura/tempura/internal/sse"
	"github.com/frytempura/tempura/internal/testutil"
)

func testServer(t *testing.T) (*Server, *pipeline.Pipeline) {
	t.Helper()

	root, store := testutil.TestProject(t)
	testutil.WriteFile(t, root, "scripts/hello.ts",
		"// Greets the active note.\nexport function hello(): string { return \"hi\"; }")
	testutil.WriteFile(t, root, "scripts/clock.ts",
		"// Inserts the current time.\nexport function clock(): string { return new Date().toISOString(); }")

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

	return New(p), p
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_build_status":
		result, err = srv.getBuildStatus(ctx, req)
	case "trigger_build":
		result, err = srv.triggerBuild(ctx, req)
	case "list_scripts":
		result, err = srv.listScripts(ctx, req)
	case "read_script":
		result, err = srv.readScript(ctx, req)
	case "search_scripts":
		result, err = srv.searchScripts(ctx, req)
	case "get_script_contract":
		result, err = srv.getScriptContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetBuildStatus(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_build_status", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"state": "idle"`) {
		t.Errorf("initial status = %q", resultText(r))
	}
}

func TestTriggerBuildAndListScripts(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "trigger_build", map[string]interface{}{})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("trigger_build failed: %s", text)
	}
	if !strings.Contains(text, `"state": "succeeded"`) {
		t.Errorf("trigger result = %q", text)
	}

	r = callTool(t, srv, "list_scripts", map[string]interface{}{})
	text = resultText(r)
	for _, name := range []string{"clock", "hello"} {
		if !strings.Contains(text, `"name": "`+name+`"`) {
			t.Errorf("list missing %s: %q", name, text)
		}
	}
}

func TestReadScript(t *testing.T) {
	srv, p := testServer(t)
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "read_script", map[string]interface{}{"name": "hello"})
	if !strings.Contains(resultText(r), "function hello") {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestReadScriptMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_script", map[string]interface{}{"name": "nope"})
	if !r.IsError {
		t.Error("expected error for missing script")
	}
}

func TestSearchScripts(t *testing.T) {
	srv, p := testServer(t)
	if err := p.Rebuild(context.Background(), "cli"); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_scripts", map[string]interface{}{"query": "time"})
	text := resultText(r)
	if !strings.Contains(text, "clock") {
		t.Errorf("search should match the clock description, got %q", text)
	}
	if strings.Contains(text, `"name": "hello"`) {
		t.Errorf("search should not match hello, got %q", text)
	}
}

func TestGetScriptContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_script_contract", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"fry-tempura", "registry name", "tp.user.tempura"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
