// Package parser extracts the description header and exported symbol names
// from user script sources.
package parser

import (
	"regexp"
	"strings"
)

var (
	exportDeclRe   = regexp.MustCompile(`(?m)^\s*export\s+(?:async\s+)?(?:function|const|let|var|class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	exportListRe   = regexp.MustCompile(`(?m)^\s*export\s*\{([^}]*)\}`)
	exportDefRe    = regexp.MustCompile(`(?m)^\s*export\s+default\b`)
	blockCommentRe = regexp.MustCompile(`^/\*+([\s\S]*?)\*/`)
)

// Result holds the output of parsing a script source file.
type Result struct {
	Description string
	Exports     []string
}

// Parse extracts the leading comment description and exported symbol names
// from raw script source bytes. It never fails: unparseable input simply
// yields an empty Result.
func Parse(data []byte) *Result {
	src := string(data)
	return &Result{
		Description: extractDescription(src),
		Exports:     extractExports(src),
	}
}

// extractDescription returns the leading comment block of the source: either
// a run of // lines or a single /* */ block, whichever the file opens with.
func extractDescription(src string) string {
	trimmed := strings.TrimLeft(src, "\n\r \t")

	if m := blockCommentRe.FindStringSubmatch(trimmed); m != nil {
		return tidyCommentBlock(m[1])
	}

	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		l := strings.TrimSpace(line)
		if !strings.HasPrefix(l, "//") {
			break
		}
		lines = append(lines, strings.TrimSpace(strings.TrimPrefix(l, "//")))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// tidyCommentBlock strips the decorative "*" gutter of a block comment.
func tidyCommentBlock(block string) string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		l := strings.TrimSpace(line)
		l = strings.TrimSpace(strings.TrimPrefix(l, "*"))
		if l == "" && len(lines) == 0 {
			continue
		}
		lines = append(lines, l)
	}
	// Drop trailing blank lines.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// extractExports returns deduplicated exported symbol names in source order.
// Re-export lists normalise aliases: "a as b" exports b.
func extractExports(src string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	for _, m := range exportDeclRe.FindAllStringSubmatch(src, -1) {
		add(m[1])
	}

	for _, m := range exportListRe.FindAllStringSubmatch(src, -1) {
		for _, item := range strings.Split(m[1], ",") {
			name := item
			// Handle aliases: "original as alias" exports alias.
			if i := strings.LastIndex(item, " as "); i >= 0 {
				name = item[i+len(" as "):]
			}
			add(name)
		}
	}

	if exportDefRe.MatchString(src) {
		add("default")
	}

	return out
}
