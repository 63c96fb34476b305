// Package deploy copies build outputs into the destination folders that
// mirror the user's note vault. Deploys are additive: files are overwritten
// by name and nothing that this run did not produce is ever deleted.
package deploy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/frytempura/tempura/internal/build"
	"github.com/frytempura/tempura/internal/checksum"
	"github.com/frytempura/tempura/internal/models"
	"github.com/frytempura/tempura/internal/storage"
)

// Deployer copies files from the project tree into destination roots.
type Deployer struct {
	store   storage.Provider
	builder *build.Builder
	logger  *slog.Logger
}

// New creates a Deployer reading from the project store.
func New(store storage.Provider, builder *build.Builder, logger *slog.Logger) *Deployer {
	return &Deployer{store: store, builder: builder, logger: logger}
}

// destFS opens (creating if needed) a rooted provider for a destination.
// Relative destinations resolve against the project root.
func (d *Deployer) destFS(dst string) (storage.Provider, error) {
	abs := dst
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(d.store.Root(), abs)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("deploy: create destination %s: %w", dst, err)
	}
	return storage.NewFS(abs)
}

// writeIfChanged writes content unless the destination already holds
// identical bytes. Skipping the write keeps re-runs byte-stable and leaves
// destination mtimes alone, so the host application is not poked for
// nothing.
func writeIfChanged(dst storage.Provider, rel string, content []byte) (bool, error) {
	existing, err := dst.Checksum(rel)
	if err != nil {
		return false, err
	}
	if existing == checksum.Sum(content) {
		return false, nil
	}
	if err := dst.Write(rel, content); err != nil {
		return false, err
	}
	return true, nil
}

// WriteArtifact places the aggregate artifact into dir under the given file
// name. It reports whether the destination actually changed.
func (d *Deployer) WriteArtifact(dir, name string, content []byte) (string, bool, error) {
	fs, err := d.destFS(dir)
	if err != nil {
		return "", false, err
	}
	changed, err := writeIfChanged(fs, name, content)
	if err != nil {
		return "", false, err
	}
	abs := filepath.Join(fs.Root(), name)
	if changed {
		d.logger.Info("deploy: artifact written", slog.String("path", abs), slog.Int("bytes", len(content)))
	} else {
		d.logger.Debug("deploy: artifact unchanged", slog.String("path", abs))
	}
	return abs, changed, nil
}

// Run executes every deploy-map pair in sorted order. Typed script sources
// are compiled on the way; every other file is copied byte-for-byte.
func (d *Deployer) Run(deployMap map[string]string) ([]models.CopyReport, error) {
	srcs := make([]string, 0, len(deployMap))
	for src := range deployMap {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)

	var reports []models.CopyReport
	for _, src := range srcs {
		report, err := d.copyTree(src, deployMap[src])
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// copyTree copies one source directory into one destination root.
func (d *Deployer) copyTree(src, dst string) (models.CopyReport, error) {
	report := models.CopyReport{Source: src, Destination: dst}

	metas, err := d.store.List(src)
	if err != nil {
		return report, fmt.Errorf("deploy: %s: %w", src, err)
	}

	fs, err := d.destFS(dst)
	if err != nil {
		return report, err
	}
	report.Destination = fs.Root()

	prefix := strings.TrimSuffix(src, "/") + "/"
	for _, m := range metas {
		rel := strings.TrimPrefix(m.Path, prefix)

		var content []byte
		outRel := rel
		if isTypedScript(rel) {
			abs := filepath.Join(d.store.Root(), filepath.FromSlash(m.Path))
			content, err = d.builder.BundleFile(abs)
			if err != nil {
				return report, fmt.Errorf("deploy: compile %s: %w", m.Path, err)
			}
			outRel = strings.TrimSuffix(rel, ".ts") + ".js"
			report.Transpiled++
		} else {
			content, err = d.store.Read(m.Path)
			if err != nil {
				return report, fmt.Errorf("deploy: read %s: %w", m.Path, err)
			}
		}

		wrote, err := writeIfChanged(fs, outRel, content)
		if err != nil {
			return report, fmt.Errorf("deploy: write %s: %w", outRel, err)
		}
		if wrote {
			report.Copied++
			d.logger.Debug("deploy: copied",
				slog.String("from", m.Path),
				slog.String("to", filepath.Join(fs.Root(), outRel)))
		} else {
			report.Skipped++
		}
	}

	d.logger.Info("deploy: tree done",
		slog.String("source", src),
		slog.String("destination", fs.Root()),
		slog.Int("copied", report.Copied),
		slog.Int("transpiled", report.Transpiled),
		slog.Int("skipped", report.Skipped))
	return report, nil
}

// isTypedScript reports whether rel is a TypeScript source to compile on
// copy. Declaration files ride along verbatim.
func isTypedScript(rel string) bool {
	return strings.HasSuffix(rel, ".ts") && !strings.HasSuffix(rel, ".d.ts")
}
