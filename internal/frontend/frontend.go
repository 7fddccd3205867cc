package frontend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"cpg/internal/graph"
)

// Result is what a frontend produces for one source file: the
// translation unit and the root of the scope tree built while parsing
// it. Passes reach scopes through node backlinks; the root is kept for
// whole-tree operations.
type Result struct {
	Unit  *graph.TranslationUnitDecl
	Scope *graph.Scope
}

// Frontend turns one source file into a translation unit. Implementations
// are single-use per file set and not safe for concurrent calls; the
// translation manager allocates one frontend per file.
type Frontend interface {
	// Language is the short name used in configuration and logs.
	Language() string

	// Extensions lists the file extensions this frontend claims,
	// including the dot.
	Extensions() []string

	// Delimiter separates name qualifiers in this language, for example
	// "::" or ".".
	Delimiter() string

	// Parse reads and translates the file at path.
	Parse(ctx context.Context, path string) (*Result, error)
}

// Factory allocates a fresh frontend. Options such as include paths are
// bound at registration time.
type Factory func() Frontend

// Registry maps file extensions to frontend factories.
type Registry struct {
	byExt map[string]Factory
	names []string
}

func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Factory)}
}

// Register claims the extensions of the frontend the factory produces.
// Later registrations win, so callers can override defaults.
func (r *Registry) Register(f Factory) {
	probe := f()
	r.names = append(r.names, probe.Language())
	for _, ext := range probe.Extensions() {
		r.byExt[strings.ToLower(ext)] = f
	}
}

// For returns a fresh frontend for the file at path, or an error when no
// registered frontend claims its extension.
func (r *Registry) For(path string) (Frontend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("no frontend registered for %q (extension %q)", path, ext)
	}
	return f(), nil
}

// Supports reports whether some frontend claims the file.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Languages lists the registered frontend names in registration order.
func (r *Registry) Languages() []string {
	return append([]string(nil), r.names...)
}

// CleanComment strips comment markers from a raw comment block, keeping
// one line of text per source line. Handles line comments ("//", "#"),
// block comment fences, and leading "*" continuation markers.
func CleanComment(raw string) string {
	if raw == "" {
		return ""
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "///")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "#")
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(strings.TrimSpace(line), "* ")
		line = strings.TrimSpace(line)
		if line == "*" {
			line = ""
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
