package gosrc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"cpg/internal/ctype"
	"cpg/internal/frontend"
	"cpg/internal/graph"
	"cpg/internal/scopes"
)

// Frontend translates Go sources. The graph vocabulary is shared with
// the other frontends: a package clause becomes a namespace, a struct
// type a record, a method a member of its receiver's record.
type Frontend struct {
	scope  *scopes.Manager
	logger *slog.Logger

	source []byte
	file   string

	records map[string]*graph.RecordDecl
	// pending holds methods whose receiver type was not seen yet.
	pending []*graph.MethodDecl
}

type Option func(*Frontend)

func WithLogger(l *slog.Logger) Option {
	return func(f *Frontend) { f.logger = l }
}

func New(opts ...Option) *Frontend {
	f := &Frontend{
		scope:   scopes.NewManager(),
		logger:  slog.Default(),
		records: make(map[string]*graph.RecordDecl),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func Factory(opts ...Option) frontend.Factory {
	return func() frontend.Frontend { return New(opts...) }
}

func (f *Frontend) Language() string      { return "go" }
func (f *Frontend) Extensions() []string  { return []string{".go"} }
func (f *Frontend) Delimiter() string     { return "." }

func (f *Frontend) Parse(ctx context.Context, path string) (*frontend.Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f.source, f.file = source, path

	unit := graph.NewTranslationUnit(path)
	root := tree.RootNode()

	ns := f.packageNamespace(root)
	if ns != nil {
		unit.AddDeclaration(ns)
		f.scope.EnterScope(graph.NamespaceScope, ns)
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		for _, d := range f.handleTopLevel(child) {
			if ns != nil {
				ns.Declarations = append(ns.Declarations, d)
			} else {
				unit.AddDeclaration(d)
			}
		}
	}
	f.attachPendingMethods()

	if ns != nil {
		f.scope.LeaveScope(ns)
	}
	if err := f.scope.Finish(); err != nil {
		return nil, err
	}
	return &frontend.Result{Unit: unit, Scope: f.scope.GlobalScope()}, nil
}

func (f *Frontend) packageNamespace(root *sitter.Node) *graph.NamespaceDecl {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_clause" && child.NamedChildCount() > 0 {
			name := f.text(child.NamedChild(0))
			return graph.NewNamespaceDecl(name, f.text(child), f.location(child))
		}
	}
	return nil
}

func (f *Frontend) handleTopLevel(node *sitter.Node) []graph.Declaration {
	decls := f.translateTopLevel(node)
	if doc := f.docCommentBefore(node); doc != "" {
		for _, d := range decls {
			if d != nil && d.Base().Comment == "" {
				d.Base().Comment = doc
			}
		}
	}
	return decls
}

func (f *Frontend) translateTopLevel(node *sitter.Node) []graph.Declaration {
	switch node.Type() {
	case "function_declaration":
		return []graph.Declaration{f.handleFunction(node)}
	case "method_declaration":
		// Methods live on their receiver's record, not at file level.
		f.handleMethod(node)
		return nil
	case "type_declaration":
		var out []graph.Declaration
		for i := 0; i < int(node.NamedChildCount()); i++ {
			spec := node.NamedChild(i)
			if spec.Type() != "type_spec" {
				continue
			}
			if d := f.handleTypeSpec(spec); d != nil {
				out = append(out, d)
			}
		}
		return out
	case "var_declaration", "const_declaration":
		return f.handleVarSpecs(node)
	case "package_clause", "import_declaration", "comment":
		return nil
	}
	f.logger.Debug("untranslated top-level node", "kind", node.Type(), "file", f.file)
	return nil
}

func (f *Frontend) handleTypeSpec(spec *sitter.Node) graph.Declaration {
	name := f.text(spec.ChildByFieldName("name"))
	typeNode := spec.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	switch typeNode.Type() {
	case "struct_type":
		rec := graph.NewRecordDecl(name, "struct", f.text(spec), f.location(spec))
		f.records[name] = rec
		f.scope.EnterScope(graph.RecordScope, rec)
		f.scope.AddDeclaration(rec.This)
		f.handleStructFields(typeNode, rec)
		f.scope.LeaveScope(rec)
		return rec
	case "interface_type":
		rec := graph.NewRecordDecl(name, "interface", f.text(spec), f.location(spec))
		f.records[name] = rec
		return rec
	default:
		target := ctype.Parse(f.text(typeNode), true)
		ctype.RegisterAlias(name, target)
		return graph.NewTypedefDecl(name, f.text(spec), f.location(spec), target)
	}
}

func (f *Frontend) handleStructFields(structType *sitter.Node, rec *graph.RecordDecl) {
	for i := 0; i < int(structType.NamedChildCount()); i++ {
		list := structType.NamedChild(i)
		if list.Type() != "field_declaration_list" {
			continue
		}
		for j := 0; j < int(list.NamedChildCount()); j++ {
			fieldNode := list.NamedChild(j)
			if fieldNode.Type() != "field_declaration" {
				continue
			}
			typeText := f.text(fieldNode.ChildByFieldName("type"))
			named := false
			for k := 0; k < int(fieldNode.NamedChildCount()); k++ {
				nameNode := fieldNode.NamedChild(k)
				if nameNode.Type() != "field_identifier" {
					continue
				}
				named = true
				fd := graph.NewFieldDecl(f.text(nameNode), f.text(fieldNode), f.location(fieldNode))
				fd.Type = ctype.Parse(typeText, true)
				f.scope.AddDeclaration(fd)
				rec.Fields = append(rec.Fields, fd)
			}
			if !named && typeText != "" {
				// Embedded field: named after its type.
				fd := graph.NewFieldDecl(strings.TrimPrefix(typeText, "*"), f.text(fieldNode), f.location(fieldNode))
				fd.Type = ctype.Parse(typeText, true)
				f.scope.AddDeclaration(fd)
				rec.Fields = append(rec.Fields, fd)
			}
		}
	}
}

func (f *Frontend) handleVarSpecs(node *sitter.Node) []graph.Declaration {
	var out []graph.Declaration
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "var_spec" && spec.Type() != "const_spec" {
			continue
		}
		typeText := f.text(spec.ChildByFieldName("type"))
		value := spec.ChildByFieldName("value")
		for j := 0; j < int(spec.NamedChildCount()); j++ {
			nameNode := spec.NamedChild(j)
			if nameNode.Type() != "identifier" {
				continue
			}
			v := graph.NewVariableDecl(f.text(nameNode), f.text(spec), f.location(spec))
			if typeText != "" {
				v.Type = ctype.Parse(typeText, true)
			} else {
				v.Type = ctype.NewUnknownType()
			}
			if value != nil && value.NamedChildCount() > 0 {
				v.Initializer = f.handleExpression(value.NamedChild(0))
			}
			f.scope.AddDeclaration(v)
			out = append(out, v)
		}
	}
	return out
}

func (f *Frontend) handleFunction(node *sitter.Node) *graph.FunctionDecl {
	name := f.text(node.ChildByFieldName("name"))
	fn := graph.NewFunctionDecl(name, f.text(node), f.location(node))
	if result := node.ChildByFieldName("result"); result != nil {
		fn.ReturnType = ctype.Parse(f.text(result), true)
	} else {
		fn.ReturnType = ctype.NewObjectType("void")
	}

	f.scope.AddDeclaration(fn)
	f.scope.EnterScope(graph.FunctionScope, fn)
	if params := node.ChildByFieldName("parameters"); params != nil {
		f.handleParameters(params, fn)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Body = f.handleBlockInCurrentScope(body)
		fn.IsDefinition = true
	}
	f.scope.LeaveScope(fn)
	return fn
}

func (f *Frontend) handleMethod(node *sitter.Node) {
	recvName := f.receiverTypeName(node.ChildByFieldName("receiver"))
	fn := f.handleFunction(node)
	rec, ok := f.records[recvName]
	if !ok {
		// Receiver type may be declared later in the file.
		m := graph.MethodFromFunction(fn, nil)
		m.Name = recvName + "." + fn.Name
		f.pending = append(f.pending, m)
		return
	}
	m := graph.MethodFromFunction(fn, rec)
	rec.Methods = append(rec.Methods, m)
}

func (f *Frontend) attachPendingMethods() {
	for _, m := range f.pending {
		i := strings.Index(m.Name, ".")
		if i < 0 {
			continue
		}
		recvName, local := m.Name[:i], m.Name[i+1:]
		rec, ok := f.records[recvName]
		if !ok {
			f.logger.Warn("method receiver type not found", "method", m.Name, "file", f.file)
			continue
		}
		m.Name = local
		m.Record = rec
		rec.Methods = append(rec.Methods, m)
	}
	f.pending = nil
}

func (f *Frontend) receiverTypeName(recv *sitter.Node) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		p := recv.NamedChild(i)
		if p.Type() == "parameter_declaration" {
			return strings.TrimPrefix(f.text(p.ChildByFieldName("type")), "*")
		}
	}
	return ""
}

func (f *Frontend) handleParameters(list *sitter.Node, fn *graph.FunctionDecl) {
	index := 0
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		switch child.Type() {
		case "parameter_declaration":
			typeText := f.text(child.ChildByFieldName("type"))
			named := false
			for j := 0; j < int(child.NamedChildCount()); j++ {
				nameNode := child.NamedChild(j)
				if nameNode.Type() != "identifier" {
					continue
				}
				named = true
				p := graph.NewParameterDecl(f.text(nameNode), f.text(child), f.location(child))
				p.Type = ctype.Parse(typeText, true)
				p.ArgumentIndex = index
				f.scope.AddDeclaration(p)
				fn.Parameters = append(fn.Parameters, p)
				index++
			}
			if !named {
				p := graph.NewParameterDecl("", f.text(child), f.location(child))
				p.Type = ctype.Parse(typeText, true)
				p.ArgumentIndex = index
				fn.Parameters = append(fn.Parameters, p)
				index++
			}
		case "variadic_parameter_declaration":
			name := ""
			if n := child.ChildByFieldName("name"); n != nil {
				name = f.text(n)
			}
			p := graph.NewParameterDecl(name, f.text(child), f.location(child))
			p.Type = ctype.Parse(f.text(child.ChildByFieldName("type")), true)
			p.ArgumentIndex = index
			p.Variadic = true
			f.scope.AddDeclaration(p)
			fn.Parameters = append(fn.Parameters, p)
			index++
		}
	}
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

func (f *Frontend) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(f.source)
}

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
