// Package build drives the compiler. Two operations exist: bundling every
// user script into the single aggregate registry artifact, and bundling one
// script file on its own for deploy-map copies. Both go through esbuild with
// the façade resolver plugged in.
package build

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/frytempura/tempura/internal/apperr"
	"github.com/frytempura/tempura/internal/facade"
	"github.com/frytempura/tempura/internal/models"
)

// banner opens every artifact. It is static on purpose: a timestamp would
// break byte-identical rebuilds.
const banner = "// Generated by tempura. Edits are overwritten on the next build."

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// SupportedTargets lists the accepted build.target config values.
func SupportedTargets() []string {
	out := make([]string, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Options configure a Builder.
type Options struct {
	// SourceDir is the absolute path of the script source directory; the
	// aggregate entrypoint resolves script files against it.
	SourceDir string
	// Target names the emitted language level, e.g. "es2018".
	Target string
	// LibDir optionally points at a façade copy vended into the project.
	LibDir string
}

// Builder compiles user scripts into host-loadable artifacts.
type Builder struct {
	opts   Options
	target api.Target
}

// New creates a Builder, rejecting unknown targets.
func New(opts Options) (*Builder, error) {
	target, ok := targets[strings.ToLower(opts.Target)]
	if !ok {
		return nil, fmt.Errorf("build: unsupported target %q (supported: %s)",
			opts.Target, strings.Join(SupportedTargets(), ", "))
	}
	return &Builder{opts: opts, target: target}, nil
}

// Error carries compiler diagnostics for a failed run.
type Error struct {
	Messages []api.Message
}

// Error formats the diagnostics the way the compiler CLI would.
func (e *Error) Error() string {
	lines := api.FormatMessages(e.Messages, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	return strings.TrimSpace(strings.Join(lines, ""))
}

// Unwrap lets callers branch with errors.Is(err, apperr.ErrBuildFailed).
func (e *Error) Unwrap() error {
	return apperr.ErrBuildFailed
}

// Aggregate bundles the given scripts into the single registry artifact the
// templating plugin's script loader consumes. The registry maps each script
// name to its module exports; the host reaches a function as
// tp.user.<artifact>.<name>.<fn>. Output is deterministic for a given
// source set.
func (b *Builder) Aggregate(scripts []models.ScriptMeta) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   aggregateEntry(scripts),
			ResolveDir: b.opts.SourceDir,
			Sourcefile: "registry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:   true,
		Format:   api.FormatCommonJS,
		Platform: api.PlatformNode,
		Target:   b.target,
		Banner:   map[string]string{"js": banner},
		Write:    false,
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{facade.Plugin(b.opts.LibDir)},
	})
	return output(result)
}

// BundleFile bundles a single script entry into a standalone plain-script
// artifact. Façade imports are inlined so the output has no module
// dependencies beyond the host's own.
func (b *Builder) BundleFile(absPath string) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{absPath},
		Bundle:      true,
		Format:      api.FormatCommonJS,
		Platform:    api.PlatformNode,
		Target:      b.target,
		Banner:      map[string]string{"js": banner},
		Write:       false,
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{facade.Plugin(b.opts.LibDir)},
	})
	return output(result)
}

// aggregateEntry renders the synthetic registry entrypoint. Scripts are
// emitted in sorted order so the artifact does not depend on discovery
// order. An empty source set yields an empty registry, which is valid: the
// watch loop must survive a source directory being emptied.
func aggregateEntry(scripts []models.ScriptMeta) string {
	sorted := make([]models.ScriptMeta, len(scripts))
	copy(sorted, scripts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	sb.WriteString("module.exports = {\n")
	for _, s := range sorted {
		fmt.Fprintf(&sb, "  %q: require(%q),\n", s.Name, "./"+s.Path)
	}
	sb.WriteString("};\n")
	return sb.String()
}

func output(result api.BuildResult) ([]byte, error) {
	if len(result.Errors) > 0 {
		return nil, &Error{Messages: result.Errors}
	}
	if len(result.OutputFiles) != 1 {
		return nil, fmt.Errorf("build: expected one output file, got %d", len(result.OutputFiles))
	}
	return result.OutputFiles[0].Contents, nil
}
