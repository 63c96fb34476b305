// Package catalog maintains the in-memory registry of user scripts found in
// the source directory. It is rebuilt from disk on every scan; nothing is
// persisted between runs.
package catalog

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frytempura/tempura/internal/models"
	"github.com/frytempura/tempura/internal/parser"
	"github.com/frytempura/tempura/internal/storage"
)

// Reader is the read side of the catalog used by the status server and the
// MCP tools.
type Reader interface {
	Snapshot() []models.ScriptMeta
	Get(name string) (models.ScriptMeta, bool)
	Search(query string) []models.ScriptMeta
}

// Catalog holds the latest scan result behind a lock. The watch loop is the
// only writer; servers read snapshots.
type Catalog struct {
	mu      sync.RWMutex
	scripts []models.ScriptMeta
	scanned time.Time
}

// Verify *Catalog satisfies Reader at compile time.
var _ Reader = (*Catalog)(nil)

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// IsScriptSource reports whether rel (a path relative to the source
// directory, slash-separated) names a user script. Declaration files,
// underscore-prefixed entries, and the vended library subtree are not
// scripts.
func IsScriptSource(rel string) bool {
	ext := path.Ext(rel)
	if ext != ".ts" && ext != ".js" {
		return false
	}
	if strings.HasSuffix(rel, ".d.ts") {
		return false
	}
	for i, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, "_") || strings.HasPrefix(seg, ".") {
			return false
		}
		if i == 0 && seg == "lib" {
			return false
		}
	}
	return true
}

// ScriptName returns the registry key for a script path: the file stem.
func ScriptName(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Scan walks dir (relative to the store root), parses every script source,
// and replaces the snapshot. The returned slice is sorted by name. Two
// scripts sharing a stem is an error; the previous snapshot is kept so the
// status surface still describes the last good scan.
func (c *Catalog) Scan(store storage.Provider, dir string) ([]models.ScriptMeta, error) {
	metas, err := store.List(dir)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if dir != "" {
		prefix = strings.TrimSuffix(dir, "/") + "/"
	}

	byName := make(map[string]string)
	var scripts []models.ScriptMeta
	for _, m := range metas {
		rel := strings.TrimPrefix(m.Path, prefix)
		if !IsScriptSource(rel) {
			continue
		}

		name := ScriptName(rel)
		if prev, dup := byName[name]; dup {
			return nil, fmt.Errorf("catalog: duplicate script name %q: %s and %s", name, prev, rel)
		}
		byName[name] = rel

		data, err := store.Read(m.Path)
		if err != nil {
			return nil, err
		}
		res := parser.Parse(data)

		scripts = append(scripts, models.ScriptMeta{
			Name:        name,
			Path:        rel,
			Description: res.Description,
			Exports:     res.Exports,
			Checksum:    m.Checksum,
			UpdatedAt:   m.UpdatedAt,
		})
	}

	sortByName(scripts)

	c.mu.Lock()
	c.scripts = scripts
	c.scanned = time.Now()
	c.mu.Unlock()

	return scripts, nil
}

// Snapshot returns a copy of the latest scan result.
func (c *Catalog) Snapshot() []models.ScriptMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ScriptMeta, len(c.scripts))
	copy(out, c.scripts)
	return out
}

// ScannedAt returns when the snapshot was last replaced.
func (c *Catalog) ScannedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scanned
}

// Get returns the script with the given registry name.
func (c *Catalog) Get(name string) (models.ScriptMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.scripts {
		if s.Name == name {
			return s, true
		}
	}
	return models.ScriptMeta{}, false
}

// Search returns scripts whose name, description, or exports contain the
// query, case-insensitively.
func (c *Catalog) Search(query string) []models.ScriptMeta {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.ScriptMeta
	for _, s := range c.scripts {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Description), q) ||
			containsFold(s.Exports, q) {
			out = append(out, s)
		}
	}
	return out
}

func containsFold(items []string, q string) bool {
	for _, it := range items {
		if strings.Contains(strings.ToLower(it), q) {
			return true
		}
	}
	return false
}

func sortByName(scripts []models.ScriptMeta) {
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
}
