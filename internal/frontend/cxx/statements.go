package cxx

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"cpg/internal/graph"
)

// handleBlockScoped translates a compound statement in the current scope
// without opening a new one. Function bodies use it, so parameters and
// top-level locals share the function's scope.
func (f *Frontend) handleBlockScoped(ctx context.Context, node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	b.Scope = f.scope.CurrentScope()
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s := f.handleStatement(ctx, node.NamedChild(i)); s != nil {
			b.AddStatement(s)
		}
	}
	return b
}

// handleBlock opens a fresh lexical scope for a nested compound
// statement.
func (f *Frontend) handleBlock(ctx context.Context, node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	f.scope.EnterScope(graph.BlockScope, b)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s := f.handleStatement(ctx, node.NamedChild(i)); s != nil {
			b.AddStatement(s)
		}
	}
	f.scope.LeaveScope(b)
	return b
}

// handleStatement translates one statement node. Unknown kinds produce an
// unimplemented stub rather than halting the walk.
func (f *Frontend) handleStatement(ctx context.Context, node *sitter.Node) graph.Statement {
	switch node.Type() {
	case "compound_statement":
		return f.handleBlock(ctx, node)

	case "expression_statement":
		if node.NamedChildCount() == 0 {
			return graph.NewEmptyStmt(f.text(node), f.location(node))
		}
		return f.handleExpression(node.NamedChild(0))

	case "declaration":
		ds := graph.NewDeclStmt(f.text(node), f.location(node))
		ds.Scope = f.scope.CurrentScope()
		for _, d := range f.handleVariableDeclaration(ctx, node) {
			ds.AddDeclaration(d)
		}
		return ds

	case "if_statement":
		s := graph.NewIfStmt(f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		s.Condition = f.handleCondition(node.ChildByFieldName("condition"))
		if c := node.ChildByFieldName("consequence"); c != nil {
			s.Then = f.handleStatement(ctx, c)
		}
		if a := node.ChildByFieldName("alternative"); a != nil {
			// The field points at an else_clause wrapper in newer
			// grammars and at the statement directly in older ones.
			if a.Type() == "else_clause" && a.NamedChildCount() > 0 {
				s.Else = f.handleStatement(ctx, a.NamedChild(0))
			} else {
				s.Else = f.handleStatement(ctx, a)
			}
		}
		return s

	case "while_statement":
		s := graph.NewWhileStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		s.Condition = f.handleCondition(node.ChildByFieldName("condition"))
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(ctx, b)
		}
		f.scope.LeaveScope(s)
		return s

	case "do_statement":
		s := graph.NewDoStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(ctx, b)
		}
		s.Condition = f.handleCondition(node.ChildByFieldName("condition"))
		f.scope.LeaveScope(s)
		return s

	case "for_statement":
		s := graph.NewForStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		if init := node.ChildByFieldName("initializer"); init != nil {
			if init.Type() == "declaration" {
				s.Init = f.handleStatement(ctx, init)
			} else {
				s.Init = f.handleExpression(init)
			}
		}
		if cond := node.ChildByFieldName("condition"); cond != nil {
			s.Condition = f.handleExpression(cond)
		}
		if upd := node.ChildByFieldName("update"); upd != nil {
			s.Update = f.handleExpression(upd)
		}
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(ctx, b)
		}
		f.scope.LeaveScope(s)
		return s

	case "for_range_loop":
		s := graph.NewForEachStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.LoopScope, s)
		d := f.analyzeDeclarator(node.ChildByFieldName("declarator"))
		v := graph.NewVariableDecl(d.name, f.text(node.ChildByFieldName("declarator")), f.location(node))
		v.Type = f.typeOf(node.ChildByFieldName("type"), d)
		f.scope.AddDeclaration(v)
		s.Variable = v
		if r := node.ChildByFieldName("right"); r != nil {
			s.Iterable = f.handleExpression(r)
		}
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleStatement(ctx, b)
		}
		f.scope.LeaveScope(s)
		return s

	case "switch_statement":
		s := graph.NewSwitchStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.SwitchScope, s)
		s.Selector = f.handleCondition(node.ChildByFieldName("condition"))
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleSwitchBody(ctx, b)
		}
		f.scope.LeaveScope(s)
		return s

	case "case_statement":
		// Reached only outside a switch body walk; translate leniently.
		return f.handleCaseStatement(ctx, node, graph.NewBlock("", nil))

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

	case "goto_statement":
		s := graph.NewGotoStmt(f.text(node.ChildByFieldName("label")), f.text(node), f.location(node))
		s.Scope = f.scope.CurrentScope()
		return s

	case "labeled_statement":
		s := graph.NewLabelStmt(f.text(node.ChildByFieldName("label")), f.text(node), f.location(node))
		f.scope.AddLabel(s)
		if node.NamedChildCount() > 1 {
			s.Statement = f.handleStatement(ctx, node.NamedChild(1))
		}
		return s

	case "try_statement":
		s := graph.NewTryStmt(f.text(node), f.location(node))
		f.scope.EnterScope(graph.TryScope, s)
		if b := node.ChildByFieldName("body"); b != nil {
			s.Body = f.handleBlock(ctx, b)
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "catch_clause" {
				s.Catches = append(s.Catches, f.handleCatchClause(ctx, child))
			}
		}
		f.scope.LeaveScope(s)
		return s

	case "struct_specifier", "class_specifier", "union_specifier",
		"enum_specifier", "type_definition":
		ds := graph.NewDeclStmt(f.text(node), f.location(node))
		for _, d := range f.handleTopLevel(ctx, node) {
			ds.AddDeclaration(d)
		}
		return ds

	case "comment":
		return nil
	}
	return f.unimplemented(node)
}

// handleCondition unwraps the parenthesized condition of control
// statements.
func (f *Frontend) handleCondition(node *sitter.Node) graph.Expression {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "parenthesized_expression", "condition_clause":
		if node.NamedChildCount() > 0 {
			return f.handleCondition(node.NamedChild(0))
		}
		return nil
	}
	return f.handleExpression(node)
}

// handleSwitchBody keeps the flat label-then-statements layout of a
// switch body, nesting each case's statements under its label.
func (f *Frontend) handleSwitchBody(ctx context.Context, node *sitter.Node) *graph.Block {
	b := graph.NewBlock(f.text(node), f.location(node))
	f.scope.EnterScope(graph.BlockScope, b)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "case_statement" {
			f.handleCaseStatement(ctx, child, b)
			continue
		}
		if s := f.handleStatement(ctx, child); s != nil {
			b.AddStatement(s)
		}
	}
	f.scope.LeaveScope(b)
	return b
}

// handleCaseStatement emits the label marker followed by the case's
// statements into the surrounding block.
func (f *Frontend) handleCaseStatement(ctx context.Context, node *sitter.Node, into *graph.Block) graph.Statement {
	var label graph.Statement
	value := node.ChildByFieldName("value")
	if value != nil {
		c := graph.NewCaseStmt(f.text(node), f.location(node))
		c.Expression = f.handleExpression(value)
		label = c
	} else {
		label = graph.NewDefaultStmt(f.text(node), f.location(node))
	}
	into.AddStatement(label)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == value {
			continue
		}
		if s := f.handleStatement(ctx, child); s != nil {
			into.AddStatement(s)
		}
	}
	return label
}

func (f *Frontend) handleCatchClause(ctx context.Context, node *sitter.Node) *graph.CatchClause {
	c := graph.NewCatchClause(f.text(node), f.location(node))
	f.scope.EnterScope(graph.BlockScope, c)
	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() != "parameter_declaration" {
				continue
			}
			d := f.analyzeDeclarator(p.ChildByFieldName("declarator"))
			v := graph.NewVariableDecl(d.name, f.text(p), f.location(p))
			v.Type = f.typeOf(p.ChildByFieldName("type"), d)
			f.scope.AddDeclaration(v)
			c.Parameter = v
		}
	}
	if b := node.ChildByFieldName("body"); b != nil {
		c.Body = f.handleBlockScoped(ctx, b)
	}
	f.scope.LeaveScope(c)
	return c
}
