// Package scaffold stamps a new Tempura project into a directory. The
// starter files are compiled into the binary via //go:embed and copied
// as-is; the fry-tempura library is vended alongside so editors resolve
// the import without any package install.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/frytempura/tempura/internal/facade"
	"github.com/frytempura/tempura/internal/storage"
)

//go:embed starter
var starter embed.FS

// LibDir is where the vended library copy lands, relative to the project
// root. The build resolver prefers this copy over the embedded one.
const LibDir = "lib/fry-tempura"

// Report lists what Generate did, both written and left alone.
type Report struct {
	Created []string
	Skipped []string
}

// Generate writes the starter project into root, creating it if needed.
// Existing files are never overwritten; they are reported as skipped so
// re-running init on a live project is safe.
func Generate(root string) (Report, error) {
	var report Report

	if err := os.MkdirAll(root, 0o755); err != nil {
		return report, fmt.Errorf("scaffold: create project dir: %w", err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return report, err
	}

	files, err := starterFiles()
	if err != nil {
		return report, err
	}
	for _, name := range facade.Files() {
		data, err := facade.Source(name)
		if err != nil {
			return report, err
		}
		files[path.Join(LibDir, name)] = data
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		existing, err := store.Checksum(name)
		if err != nil {
			return report, err
		}
		if existing != "" {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if err := store.Write(name, files[name]); err != nil {
			return report, err
		}
		report.Created = append(report.Created, name)
	}
	return report, nil
}

// starterFiles flattens the embedded starter tree into project-relative
// paths.
func starterFiles() (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := fs.WalkDir(starter, "starter", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := starter.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		files[strings.TrimPrefix(p, "starter/")] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scaffold: read starter: %w", err)
	}
	return files, nil
}
