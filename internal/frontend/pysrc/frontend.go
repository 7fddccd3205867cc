package pysrc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"cpg/internal/ctype"
	"cpg/internal/frontend"
	"cpg/internal/graph"
	"cpg/internal/scopes"
)

// Frontend translates Python sources. Classes become records, their
// def members methods (with __init__ promoted to a constructor), and
// module-level assignments variables. Types are taken from annotations
// when present and unknown otherwise.
type Frontend struct {
	scope  *scopes.Manager
	logger *slog.Logger

	source []byte
	file   string
}

type Option func(*Frontend)

func WithLogger(l *slog.Logger) Option {
	return func(f *Frontend) { f.logger = l }
}

func New(opts ...Option) *Frontend {
	f := &Frontend{scope: scopes.NewManager(), logger: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

func Factory(opts ...Option) frontend.Factory {
	return func() frontend.Frontend { return New(opts...) }
}

func (f *Frontend) Language() string     { return "python" }
func (f *Frontend) Extensions() []string { return []string{".py"} }
func (f *Frontend) Delimiter() string    { return "." }

func (f *Frontend) Parse(ctx context.Context, path string) (*frontend.Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f.source, f.file = source, path

	unit := graph.NewTranslationUnit(path)
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		for _, d := range f.handleTopLevel(root.NamedChild(i)) {
			unit.AddDeclaration(d)
		}
	}
	if err := f.scope.Finish(); err != nil {
		return nil, err
	}
	return &frontend.Result{Unit: unit, Scope: f.scope.GlobalScope()}, nil
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
	case "function_definition":
		return []graph.Declaration{f.handleFunction(node)}
	case "class_definition":
		return []graph.Declaration{f.handleClass(node)}
	case "expression_statement":
		if node.NamedChildCount() == 1 && node.NamedChild(0).Type() == "assignment" {
			if v := f.handleModuleAssignment(node.NamedChild(0)); v != nil {
				return []graph.Declaration{v}
			}
		}
		return nil
	case "import_statement", "import_from_statement", "comment", "decorated_definition":
		if node.Type() == "decorated_definition" {
			if def := node.ChildByFieldName("definition"); def != nil {
				return f.handleTopLevel(def)
			}
		}
		return nil
	}
	return nil
}

// handleModuleAssignment turns a top-level name binding into a variable.
func (f *Frontend) handleModuleAssignment(node *sitter.Node) *graph.VariableDecl {
	left := node.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	v := graph.NewVariableDecl(f.text(left), f.text(node), f.location(node))
	if ann := node.ChildByFieldName("type"); ann != nil {
		v.Type = ctype.Parse(f.text(ann), true)
	} else {
		v.Type = ctype.NewUnknownType()
	}
	if right := node.ChildByFieldName("right"); right != nil {
		v.Initializer = f.handleExpression(right)
	}
	f.scope.AddDeclaration(v)
	return v
}

func (f *Frontend) handleClass(node *sitter.Node) *graph.RecordDecl {
	name := f.text(node.ChildByFieldName("name"))
	rec := graph.NewRecordDecl(name, "class", f.text(node), f.location(node))

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			if base.Type() == "identifier" || base.Type() == "attribute" {
				rec.SuperTypes = append(rec.SuperTypes, ctype.Parse(f.text(base), true))
			}
		}
	}

	f.scope.EnterScope(graph.RecordScope, rec)
	f.scope.AddDeclaration(rec.This)
	body := node.ChildByFieldName("body")
	for i := 0; body != nil && i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			fn := f.handleFunction(child)
			m := graph.MethodFromFunction(fn, rec)
			if m.Name == "__init__" {
				c := graph.ConstructorFromMethod(m)
				rec.Constructors = append(rec.Constructors, c)
			} else {
				rec.Methods = append(rec.Methods, m)
			}
		case "expression_statement":
			if child.NamedChildCount() == 1 && child.NamedChild(0).Type() == "assignment" {
				if v := f.handleModuleAssignment(child.NamedChild(0)); v != nil {
					rec.Fields = append(rec.Fields, graph.FieldFromVariable(v))
				}
			}
		}
	}
	f.scope.LeaveScope(rec)

	if len(rec.Constructors) == 0 {
		c := graph.NewConstructorDecl(rec.Name, "", rec.Location, rec)
		c.Record = rec
		c.Type = rec.Type()
		c.Implicit = true
		rec.Constructors = append(rec.Constructors, c)
	}
	return rec
}

func (f *Frontend) handleFunction(node *sitter.Node) *graph.FunctionDecl {
	name := f.text(node.ChildByFieldName("name"))
	fn := graph.NewFunctionDecl(name, f.text(node), f.location(node))
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = ctype.Parse(f.text(ret), true)
	} else {
		fn.ReturnType = ctype.NewUnknownType()
	}

	f.scope.EnterScope(graph.FunctionScope, fn)
	if params := node.ChildByFieldName("parameters"); params != nil {
		index := 0
		for i := 0; i < int(params.NamedChildCount()); i++ {
			child := params.NamedChild(i)
			p := f.handleParameter(child, index)
			if p == nil {
				continue
			}
			fn.Parameters = append(fn.Parameters, p)
			index++
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Body = f.handleSuite(body)
		fn.IsDefinition = true
	}
	f.scope.LeaveScope(fn)
	return fn
}

func (f *Frontend) handleParameter(node *sitter.Node, index int) *graph.ParameterDecl {
	switch node.Type() {
	case "identifier":
		p := graph.NewParameterDecl(f.text(node), f.text(node), f.location(node))
		p.Type = ctype.NewUnknownType()
		p.ArgumentIndex = index
		f.scope.AddDeclaration(p)
		return p
	case "typed_parameter", "typed_default_parameter", "default_parameter":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil && node.NamedChildCount() > 0 {
			nameNode = node.NamedChild(0)
		}
		p := graph.NewParameterDecl(f.text(nameNode), f.text(node), f.location(node))
		if tn := node.ChildByFieldName("type"); tn != nil {
			p.Type = ctype.Parse(f.text(tn), true)
		} else {
			p.Type = ctype.NewUnknownType()
		}
		if def := node.ChildByFieldName("value"); def != nil {
			p.Default = f.handleExpression(def)
		}
		p.ArgumentIndex = index
		f.scope.AddDeclaration(p)
		return p
	case "list_splat_pattern", "dictionary_splat_pattern":
		name := strings.TrimLeft(f.text(node), "*")
		p := graph.NewParameterDecl(name, f.text(node), f.location(node))
		p.Type = ctype.NewUnknownType()
		p.ArgumentIndex = index
		p.Variadic = true
		f.scope.AddDeclaration(p)
		return p
	}
	return nil
}

// handleSuite translates an indented block.
func (f *Frontend) handleSuite(node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	b.Scope = f.scope.CurrentScope()
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s := f.handleStatement(node.NamedChild(i)); s != nil {
			b.AddStatement(s)
		}
	}
	return b
}

func (f *Frontend) handleStatement(node *sitter.Node) graph.Statement {
	switch node.Type() {
	case "block":
		return f.handleSuite(node)

	case "expression_statement":
		if node.NamedChildCount() > 0 {
			return f.handleExpression(node.NamedChild(0))
		}
		return nil

	case "if_statement":
		s := graph.NewIfStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		s.Condition = f.handleExpression(node.ChildByFieldName("condition"))
		if c := node.ChildByFieldName("consequence"); c != nil {
			s.Then = f.handleStatement(c)
		}
		tail := s
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "else_clause":
				if body := child.ChildByFieldName("body"); body != nil {
					tail.Else = f.handleStatement(body)
				}
			case "elif_clause":
				// Chain as a nested conditional.
				nested := graph.NewIfStmt(f.text(child), f.location(child))
				nested.Condition = f.handleExpression(child.ChildByFieldName("condition"))
				if body := child.ChildByFieldName("consequence"); body != nil {
					nested.Then = f.handleStatement(body)
				}
				tail.Else = nested
				tail = nested
			}
		}
		return s

	case "while_statement":
		s := graph.NewWhileStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		s.Condition = f.handleExpression(node.ChildByFieldName("condition"))
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(b)
		}
		f.scope.LeaveScope(s)
		return s

	case "for_statement":
		s := graph.NewForEachStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			v := graph.NewVariableDecl(f.text(left), f.text(left), f.location(left))
			v.Type = ctype.NewUnknownType()
			f.scope.AddDeclaration(v)
			s.Variable = v
		}
		if right := node.ChildByFieldName("right"); right != nil {
			s.Iterable = f.handleExpression(right)
		}
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(b)
		}
		f.scope.LeaveScope(s)
		return s

	case "return_statement":
		s := graph.NewReturnStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		if node.NamedChildCount() > 0 {
			s.Value = f.handleExpression(node.NamedChild(0))
		}
		return s

	case "break_statement":
		s := graph.NewBreakStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		return s

	case "continue_statement":
		s := graph.NewContinueStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		return s

	case "pass_statement":
		return graph.NewEmptyStmt(f.text(node), f.location(node))

	case "comment":
		return nil
	}
	s := graph.NewEmptyStmt(f.text(node), f.location(node))
	s.Unimplemented = true
	f.logger.Debug("untranslated statement", "kind", node.Type(), "file", f.file)
	return s
}

func (f *Frontend) handleExpression(node *sitter.Node) graph.Expression {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return f.handleExpression(node.NamedChild(0))
		}
		return nil

	case "identifier":
		r := graph.NewDeclaredReference(f.text(node), f.text(node), f.location(node))
		r.Scope = f.scope.CurrentScope()
		return r

	case "attribute":
		e := graph.NewMemberExpr(f.text(node.ChildByFieldName("attribute")), ".", f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Operand = f.handleExpression(node.ChildByFieldName("object"))
		return e

	case "call":
		fnNode := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if fnNode != nil && fnNode.Type() == "attribute" {
			mc := graph.NewMemberCallExpr(f.text(fnNode.ChildByFieldName("attribute")), ".", f.text(node), f.location(node))
			mc.Scope = f.scope.CurrentScope()
			mc.Operand = f.handleExpression(fnNode.ChildByFieldName("object"))
			f.appendArguments(args, &mc.CallExpr)
			return mc
		}
		c := graph.NewCallExpr(f.text(fnNode), f.text(node), f.location(node))
		c.Scope = f.scope.CurrentScope()
		f.appendArguments(args, c)
		return c

	case "assignment":
		e := graph.NewBinaryOperator("=", f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		if r, ok := e.Lhs.(*graph.DeclaredReference); ok {
			r.Access = "write"
		}
		return e

	case "binary_operator", "boolean_operator", "comparison_operator":
		op := f.pickOperator(node)
		e := graph.NewBinaryOperator(op, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		return e

	case "unary_operator", "not_operator":
		op := f.pickOperator(node)
		e := graph.NewUnaryOperator(op, false, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		if arg := node.ChildByFieldName("argument"); arg != nil {
			e.Operand = f.handleExpression(arg)
		} else if node.NamedChildCount() > 0 {
			e.Operand = f.handleExpression(node.NamedChild(0))
		}
		return e

	case "subscript":
		e := graph.NewArraySubscriptExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Array = f.handleExpression(node.ChildByFieldName("value"))
		e.Index = f.handleExpression(node.ChildByFieldName("subscript"))
		return e

	case "integer":
		text := f.text(node)
		i, _ := strconv.ParseInt(text, 0, 64)
		return graph.NewLiteral(i, ctype.NewObjectType("int"), text, f.location(node))

	case "float":
		text := f.text(node)
		v, _ := strconv.ParseFloat(text, 64)
		return graph.NewLiteral(v, ctype.NewObjectType("double"), text, f.location(node))

	case "string":
		text := f.text(node)
		return graph.NewLiteral(strings.Trim(text, `"'`), ctype.Parse("const char*", false), text, f.location(node))

	case "true", "false":
		return graph.NewLiteral(node.Type() == "true", ctype.NewObjectType("bool"), f.text(node), f.location(node))

	case "none":
		t := ctype.NewObjectType("void")
		t.Wrappers = []ctype.Wrapper{{Kind: ctype.Pointer}}
		return graph.NewLiteral(nil, t, f.text(node), f.location(node))
	}

	r := graph.NewDeclaredReference(f.text(node), f.text(node), f.location(node))
	r.Scope = f.scope.CurrentScope()
	r.Unimplemented = true
	f.logger.Debug("untranslated expression", "kind", node.Type(), "file", f.file)
	return r
}

// pickOperator finds the operator token among the children.
func (f *Frontend) pickOperator(node *sitter.Node) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return f.text(op)
	}
	if node.Type() == "boolean_operator" {
		if strings.Contains(f.text(node), " or ") {
			return "||"
		}
		return "&&"
	}
	return ""
}

func (f *Frontend) appendArguments(args *sitter.Node, call *graph.CallExpr) {
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		call.AddArgument(f.handleExpression(args.NamedChild(i)))
	}
}

// docCommentBefore gathers the contiguous "#" comment block directly
// above the node, stripped of comment markers.
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
