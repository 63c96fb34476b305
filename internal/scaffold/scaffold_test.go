package scaffold

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/frytempura/tempura/internal/facade"
)

func TestGenerate_FreshProject(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")

	report, err := Generate(root)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("fresh project skipped %v", report.Skipped)
	}
	wantCreated := 3 + len(facade.Files())
	if len(report.Created) != wantCreated {
		t.Errorf("created %d files, want %d: %v", len(report.Created), wantCreated, report.Created)
	}

	cfg, err := os.ReadFile(filepath.Join(root, "tempura.config.json"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !json.Valid(cfg) {
		t.Error("starter config is not valid JSON")
	}

	for _, name := range []string{"scripts/hello.ts", "scripts/tsconfig.json"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestGenerate_VendsLibrary(t *testing.T) {
	root := t.TempDir()
	if _, err := Generate(root); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(LibDir), "index.ts"))
	if err != nil {
		t.Fatalf("vended index.ts missing: %v", err)
	}
	want, _ := facade.Source("index.ts")
	if !bytes.Equal(got, want) {
		t.Error("vended copy differs from embedded source")
	}
}

func TestGenerate_NeverOverwrites(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "tempura.config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"mine":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := Generate(root)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, _ := os.ReadFile(cfgPath)
	if string(got) != `{"mine":true}` {
		t.Errorf("existing config overwritten: %s", got)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "tempura.config.json" {
		t.Errorf("skipped = %v", report.Skipped)
	}
}

func TestGenerate_RerunSkipsEverything(t *testing.T) {
	root := t.TempDir()
	if _, err := Generate(root); err != nil {
		t.Fatal(err)
	}

	report, err := Generate(root)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if len(report.Created) != 0 {
		t.Errorf("re-run created %v", report.Created)
	}
	if len(report.Skipped) != 3+len(facade.Files()) {
		t.Errorf("re-run skipped %d files", len(report.Skipped))
	}
}
