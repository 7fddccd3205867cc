package gosrc

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// handleBlockInCurrentScope translates a function body without opening a
// new scope, so parameters and top-level locals share one.
func (f *Frontend) handleBlockInCurrentScope(node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	b.Scope = f.scope.CurrentScope()
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s := f.handleStatement(node.NamedChild(i)); s != nil {
			b.AddStatement(s)
		}
	}
	return b
}

func (f *Frontend) handleBlock(node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	f.scope.EnterScope(graph.BlockScope, b)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s := f.handleStatement(node.NamedChild(i)); s != nil {
			b.AddStatement(s)
		}
	}
	f.scope.LeaveScope(b)
	return b
}

func (f *Frontend) handleStatement(node *sitter.Node) graph.Statement {
	switch node.Type() {
	case "block":
		return f.handleBlock(node)

	case "expression_statement":
		if node.NamedChildCount() > 0 {
			return f.handleExpression(node.NamedChild(0))
		}
		return nil

	case "short_var_declaration":
		return f.handleShortVarDecl(node)

	case "var_declaration", "const_declaration":
		ds := graph.NewDeclStmt(f.text(node), f.location(node))
		ds.Scope = f.scope.CurrentScope()
		for _, d := range f.handleVarSpecs(node) {
			ds.AddDeclaration(d)
		}
		return ds

	case "assignment_statement":
		e := graph.NewBinaryOperator(f.assignOperator(node), f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpressionList(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpressionList(node.ChildByFieldName("right"))
		if r, ok := e.Lhs.(*graph.DeclaredReference); ok {
			r.Access = "write"
		}
		return e

	case "inc_statement", "dec_statement":
		op := "++"
		if node.Type() == "dec_statement" {
			op = "--"
		}
		e := graph.NewUnaryOperator(op, true, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		if node.NamedChildCount() > 0 {
			e.Operand = f.handleExpression(node.NamedChild(0))
		}
		if r, ok := e.Operand.(*graph.DeclaredReference); ok {
			r.Access = "readwrite"
		}
		return e

	case "if_statement":
		s := graph.NewIfStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		s.Condition = f.handleExpression(node.ChildByFieldName("condition"))
		if c := node.ChildByFieldName("consequence"); c != nil {
			s.Then = f.handleStatement(c)
		}
		if a := node.ChildByFieldName("alternative"); a != nil {
			s.Else = f.handleStatement(a)
		}
		return s

	case "for_statement":
		return f.handleFor(node)

	case "return_statement":
		s := graph.NewReturnStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		if node.NamedChildCount() > 0 {
			s.Value = f.handleExpressionList(node.NamedChild(0))
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

	case "comment":
		return nil
	}
	s := graph.NewEmptyStmt(f.text(node), f.location(node))
	s.Unimplemented = true
	f.logger.Debug("untranslated statement", "kind", node.Type(), "file", f.file)
	return s
}

// handleShortVarDecl turns := into variable declarations with
// initializers, one per name.
func (f *Frontend) handleShortVarDecl(node *sitter.Node) graph.Statement {
	ds := graph.NewDeclStmt(f.text(node), f.location(node))
	ds.Scope = f.scope.CurrentScope()

	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	for i := 0; left != nil && i < int(left.NamedChildCount()); i++ {
		nameNode := left.NamedChild(i)
		v := graph.NewVariableDecl(f.text(nameNode), f.text(node), f.location(nameNode))
		v.Type = ctype.NewUnknownType()
		if right != nil && i < int(right.NamedChildCount()) {
			v.Initializer = f.handleExpression(right.NamedChild(i))
		}
		f.scope.AddDeclaration(v)
		ds.AddDeclaration(v)
	}
	return ds
}

func (f *Frontend) handleFor(node *sitter.Node) graph.Statement {
	if clause := f.namedChildOfType(node, "range_clause"); clause != nil {
		s := graph.NewForEachStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		if left := clause.ChildByFieldName("left"); left != nil && left.NamedChildCount() > 0 {
			v := graph.NewVariableDecl(f.text(left.NamedChild(0)), f.text(clause), f.location(clause))
			v.Type = ctype.NewUnknownType()
			f.scope.AddDeclaration(v)
			s.Variable = v
		}
		if right := clause.ChildByFieldName("right"); right != nil {
			s.Iterable = f.handleExpression(right)
		}
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleBlockInCurrentScope(b)
		}
		f.scope.LeaveScope(s)
		return s
	}

	s := graph.NewForStmt(f.text(node), f.location(node))
	f.scope.EnterScope(graph.LoopScope, s)
	if clause := f.namedChildOfType(node, "for_clause"); clause != nil {
		if init := clause.ChildByFieldName("initializer"); init != nil {
			s.Init = f.handleStatement(init)
		}
		if cond := clause.ChildByFieldName("condition"); cond != nil {
			s.Condition = f.handleExpression(cond)
		}
		if upd := clause.ChildByFieldName("update"); upd != nil {
			if e, ok := f.handleStatement(upd).(graph.Expression); ok {
				s.Update = e
			}
		}
	} else if cond := f.firstExpressionChild(node); cond != nil {
		s.Condition = cond
	}
	if b := node.ChildByFieldName("body"); b != nil {
		s.Body = f.handleBlockInCurrentScope(b)
	}
	f.scope.LeaveScope(s)
	return s
}

func (f *Frontend) namedChildOfType(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if node.NamedChild(i).Type() == kind {
			return node.NamedChild(i)
		}
	}
	return nil
}

func (f *Frontend) firstExpressionChild(node *sitter.Node) graph.Expression {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "block" {
			return f.handleExpression(child)
		}
	}
	return nil
}

// handleExpressionList unwraps one-element expression lists, which is the
// common case; longer lists keep only the first element and log.
func (f *Frontend) handleExpressionList(node *sitter.Node) graph.Expression {
	if node == nil {
		return nil
	}
	if node.Type() != "expression_list" {
		return f.handleExpression(node)
	}
	if node.NamedChildCount() > 1 {
		f.logger.Debug("multi-value expression list truncated", "file", f.file)
	}
	if node.NamedChildCount() > 0 {
		return f.handleExpression(node.NamedChild(0))
	}
	return nil
}

func (f *Frontend) assignOperator(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		t := f.text(node.Child(i))
		switch t {
		case "=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=":
			return t
		}
	}
	return "="
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

	case "identifier", "field_identifier":
		r := graph.NewDeclaredReference(f.text(node), f.text(node), f.location(node))
		r.Scope = f.scope.CurrentScope()
		return r

	case "selector_expression":
		e := graph.NewMemberExpr(f.text(node.ChildByFieldName("field")), ".", f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Operand = f.handleExpression(node.ChildByFieldName("operand"))
		return e

	case "call_expression":
		fnNode := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if fnNode != nil && fnNode.Type() == "selector_expression" {
			mc := graph.NewMemberCallExpr(f.text(fnNode.ChildByFieldName("field")), ".", f.text(node), f.location(node))
			mc.Scope = f.scope.CurrentScope()
			mc.Operand = f.handleExpression(fnNode.ChildByFieldName("operand"))
			f.appendArguments(args, &mc.CallExpr)
			return mc
		}
		c := graph.NewCallExpr(f.text(fnNode), f.text(node), f.location(node))
		c.Scope = f.scope.CurrentScope()
		f.appendArguments(args, c)
		return c

	case "composite_literal":
		typeText := f.text(node.ChildByFieldName("type"))
		ce := graph.NewConstructExpr(typeText, f.text(node), f.location(node))
		ce.Scope = f.scope.CurrentScope()
		ce.Type = ctype.Parse(typeText, true)
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				ce.Arguments = append(ce.Arguments, f.handleExpression(body.NamedChild(i)))
			}
		}
		return ce

	case "binary_expression":
		op := ""
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = f.text(opNode)
		}
		e := graph.NewBinaryOperator(op, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		return e

	case "unary_expression":
		op := ""
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = f.text(opNode)
		}
		e := graph.NewUnaryOperator(op, false, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Operand = f.handleExpression(node.ChildByFieldName("operand"))
		return e

	case "index_expression":
		e := graph.NewArraySubscriptExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Array = f.handleExpression(node.ChildByFieldName("operand"))
		e.Index = f.handleExpression(node.ChildByFieldName("index"))
		return e

	case "int_literal":
		text := f.text(node)
		i, _ := strconv.ParseInt(text, 0, 64)
		return graph.NewLiteral(i, ctype.NewObjectType("int"), text, f.location(node))

	case "float_literal":
		text := f.text(node)
		v, _ := strconv.ParseFloat(text, 64)
		return graph.NewLiteral(v, ctype.NewObjectType("double"), text, f.location(node))

	case "interpreted_string_literal", "raw_string_literal":
		text := f.text(node)
		return graph.NewLiteral(strings.Trim(text, "`\""), ctype.Parse("const char*", false), text, f.location(node))

	case "rune_literal":
		text := f.text(node)
		return graph.NewLiteral(strings.Trim(text, "'"), ctype.NewObjectType("char"), text, f.location(node))

	case "true", "false":
		return graph.NewLiteral(node.Type() == "true", ctype.NewObjectType("bool"), f.text(node), f.location(node))

	case "nil":
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

func (f *Frontend) appendArguments(args *sitter.Node, call *graph.CallExpr) {
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		call.AddArgument(f.handleExpression(args.NamedChild(i)))
	}
}
