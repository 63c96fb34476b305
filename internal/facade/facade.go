// Package facade ships the fry-tempura script library: a set of TypeScript
// accessor functions delegating to the note-taking application's object
// graph. The sources are embedded in the binary; an esbuild plugin resolves
// the bare "fry-tempura" import specifier in user scripts against them, or
// against a copy vended into the project when one exists.
package facade

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Specifier is the import name user scripts use for the façade.
const Specifier = "fry-tempura"

// Namespace marks façade modules served from the embedded copy.
const Namespace = "fry-tempura"

// hostModule is the host application's own module. It must stay external:
// the templating plugin resolves it at script load time.
const hostModule = "obsidian"

//go:embed src
var sources embed.FS

// Files returns the relative names of every embedded façade source file.
func Files() []string {
	var out []string
	_ = fs.WalkDir(sources, "src", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		out = append(out, strings.TrimPrefix(p, "src/"))
		return nil
	})
	sort.Strings(out)
	return out
}

// Source returns the contents of an embedded façade file by relative name,
// e.g. "index.ts".
func Source(name string) ([]byte, error) {
	data, err := sources.ReadFile("src/" + name)
	if err != nil {
		return nil, fmt.Errorf("facade: %s: %w", name, err)
	}
	return data, nil
}

// embeddedPath maps a virtual module name ("index", "editor") to an embedded
// file path, trying the usual TypeScript resolution candidates.
func embeddedPath(name string) (string, bool) {
	for _, c := range []string{name, name + ".ts", name + ".d.ts", name + "/index.ts"} {
		p := "src/" + c
		if info, err := fs.Stat(sources, p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// diskPath maps a module name to a file in the project's vended copy.
func diskPath(libDir, name string) (string, bool) {
	for _, c := range []string{name, name + ".ts", name + ".d.ts", name + "/index.ts"} {
		p := filepath.Join(libDir, filepath.FromSlash(c))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Plugin returns the esbuild plugin that resolves the façade specifier.
// When libDir is non-empty and holds a vended copy of the library, that copy
// wins over the embedded sources, mirroring "library installed into the
// project" semantics.
func Plugin(libDir string) api.Plugin {
	return api.Plugin{
		Name: "fry-tempura",
		Setup: func(build api.PluginBuild) {
			// Bare specifier from user code: fry-tempura, fry-tempura/editor.
			build.OnResolve(api.OnResolveOptions{Filter: `^fry-tempura(/.*)?$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					name := strings.TrimPrefix(args.Path, Specifier)
					name = strings.TrimPrefix(name, "/")
					if name == "" {
						name = "index"
					}
					if libDir != "" {
						if p, ok := diskPath(libDir, name); ok {
							return api.OnResolveResult{Path: p}, nil
						}
					}
					return api.OnResolveResult{Path: name, Namespace: Namespace}, nil
				})

			// Relative imports between embedded façade modules.
			build.OnResolve(api.OnResolveOptions{Filter: `^\.`, Namespace: Namespace},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					p := path.Join(path.Dir(args.Importer), args.Path)
					return api.OnResolveResult{Path: p, Namespace: Namespace}, nil
				})

			// The host module is never bundled, wherever it is imported from.
			build.OnResolve(api.OnResolveOptions{Filter: `^` + hostModule + `$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: Namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					p, ok := embeddedPath(args.Path)
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("facade: no embedded module %q", args.Path)
					}
					data, err := sources.ReadFile(p)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderTS}, nil
				})
		},
	}
}
