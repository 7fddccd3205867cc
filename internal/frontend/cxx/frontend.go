package cxx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"cpg/internal/frontend"
	"cpg/internal/graph"
	"cpg/internal/scopes"
)

// Frontend translates C and C++ sources into translation units. One
// frontend handles one root file plus the quoted includes it pulls in.
type Frontend struct {
	scope  *scopes.Manager
	logger *slog.Logger

	includePaths []string
	// parsedIncludes guards against including the same file twice into
	// one unit.
	parsedIncludes map[string]bool

	// source is the byte content of the file currently being walked.
	// Include splicing swaps it while the included file is processed.
	source []byte
	file   string

	unit *graph.TranslationUnitDecl

	// records indexes every record seen, under simple and qualified
	// names, so out-of-line member definitions find their home.
	records map[string]*graph.RecordDecl
	// forwards tracks names that were only forward-declared so far.
	forwards map[string]bool
}

// Option configures a frontend at construction time.
type Option func(*Frontend)

// WithIncludePaths sets the directories searched for quoted includes
// after the including file's own directory.
func WithIncludePaths(paths ...string) Option {
	return func(f *Frontend) {
		f.includePaths = append(f.includePaths, paths...)
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Frontend) { f.logger = l }
}

func New(opts ...Option) *Frontend {
	f := &Frontend{
		scope:          scopes.NewManager(),
		logger:         slog.Default(),
		parsedIncludes: make(map[string]bool),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Factory adapts New to the registry.
func Factory(opts ...Option) frontend.Factory {
	return func() frontend.Frontend { return New(opts...) }
}

func (f *Frontend) Language() string { return "cxx" }

func (f *Frontend) Extensions() []string {
	return []string{".c", ".h", ".cpp", ".cc", ".cxx", ".hpp", ".hh"}
}

func (f *Frontend) Delimiter() string { return "::" }

// Parse reads and translates path into a translation unit.
func (f *Frontend) Parse(ctx context.Context, path string) (*frontend.Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	f.unit = graph.NewTranslationUnit(path)
	f.parsedIncludes[canonicalPath(path)] = true

	if err := f.parseInto(ctx, path, source); err != nil {
		return nil, err
	}
	if err := f.scope.Finish(); err != nil {
		return nil, err
	}
	return &frontend.Result{Unit: f.unit, Scope: f.scope.GlobalScope()}, nil
}

// parseInto runs the tree-sitter parser over source and appends the
// resulting declarations to the current unit.
func (f *Frontend) parseInto(ctx context.Context, path string, source []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	prevSource, prevFile := f.source, f.file
	f.source, f.file = source, path
	defer func() { f.source, f.file = prevSource, prevFile }()

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "preproc_include" {
			f.handleInclude(ctx, child)
			continue
		}
		for _, d := range f.handleTopLevel(ctx, child) {
			f.unit.AddDeclaration(d)
		}
	}
	return nil
}

// handleInclude resolves a quoted include against the including file's
// directory and the configured include paths, then splices the included
// declarations into the unit. System includes are recorded only.
func (f *Frontend) handleInclude(ctx context.Context, node *sitter.Node) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	spelling := f.text(pathNode)

	if strings.HasPrefix(spelling, "<") {
		f.unit.Includes = append(f.unit.Includes, spelling)
		return
	}

	name := strings.Trim(spelling, `"`)
	resolved := f.resolveInclude(name)
	if resolved == "" {
		f.logger.Warn("include not found", "include", name, "from", f.file)
		f.unit.Includes = append(f.unit.Includes, spelling)
		return
	}

	key := canonicalPath(resolved)
	if f.parsedIncludes[key] {
		f.unit.Includes = append(f.unit.Includes, resolved)
		return
	}
	f.parsedIncludes[key] = true
	f.unit.Includes = append(f.unit.Includes, resolved)

	source, err := os.ReadFile(resolved)
	if err != nil {
		f.logger.Warn("include unreadable", "include", resolved, "err", err)
		return
	}
	if err := f.parseInto(ctx, resolved, source); err != nil {
		f.logger.Warn("include parse failed", "include", resolved, "err", err)
	}
}

func (f *Frontend) resolveInclude(name string) string {
	candidates := []string{filepath.Join(filepath.Dir(f.file), name)}
	for _, dir := range f.includePaths {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// text returns the source content of a node.
func (f *Frontend) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(f.source)
}

// location builds the physical location of a node in the current file.
func (f *Frontend) location(node *sitter.Node) *graph.PhysicalLocation {
	if node == nil {
		return nil
	}
	start := node.StartPoint()
	end := node.EndPoint()
	return graph.NewLocation(f.file,
		int(start.Row)+1, int(start.Column)+1,
		int(end.Row)+1, int(end.Column))
}

// docCommentBefore gathers the contiguous comment block directly above
// the node, stripped of comment markers.
func (f *Frontend) docCommentBefore(node *sitter.Node) string {
	var lines []string
	current := node
	for {
		prev := current.PrevSibling()
		if prev == nil || prev.Type() != "comment" {
			break
		}
		if current.StartPoint().Row-prev.EndPoint().Row > 1 {
			break
		}
		lines = append([]string{f.text(prev)}, lines...)
		current = prev
	}
	return frontend.CleanComment(strings.Join(lines, "\n"))
}

// unimplemented produces a stub for a raw kind the frontend does not
// translate, keeping the source text for inspection.
func (f *Frontend) unimplemented(node *sitter.Node) *graph.EmptyStmt {
	s := graph.NewEmptyStmt(f.text(node), f.location(node))
	s.Unimplemented = true
	f.logger.Debug("untranslated node", "kind", node.Type(), "at", s.Location)
	return s
}
