package cxx

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// handleExpression translates one expression node. Unknown kinds produce
// a reference stub carrying the raw text, so downstream passes degrade
// instead of failing.
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

	case "identifier", "field_identifier", "qualified_identifier", "this":
		r := graph.NewDeclaredReference(f.text(node), f.text(node), f.location(node))
		r.Scope = f.scope.CurrentScope()
		return r

	case "number_literal":
		return f.handleNumberLiteral(node)

	case "string_literal", "raw_string_literal":
		text := f.text(node)
		value := strings.Trim(text, `"`)
		l := graph.NewLiteral(value, ctype.Parse("const char*", false), text, f.location(node))
		return l

	case "char_literal":
		text := f.text(node)
		return graph.NewLiteral(strings.Trim(text, "'"), ctype.NewObjectType("char"), text, f.location(node))

	case "true", "false":
		return graph.NewLiteral(node.Type() == "true", ctype.NewObjectType("bool"), f.text(node), f.location(node))

	case "null", "nullptr":
		t := ctype.NewObjectType("void")
		t.Wrappers = []ctype.Wrapper{{Kind: ctype.Pointer}}
		return graph.NewLiteral(nil, t, f.text(node), f.location(node))

	case "call_expression":
		return f.handleCall(node)

	case "field_expression":
		return f.handleFieldExpression(node)

	case "binary_expression":
		e := graph.NewBinaryOperator(f.operatorText(node), f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		return e

	case "assignment_expression":
		e := graph.NewBinaryOperator(f.operatorText(node), f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		markWrite(e.Lhs, "write")
		return e

	case "unary_expression", "pointer_expression":
		op := f.operatorText(node)
		e := graph.NewUnaryOperator(op, false, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Operand = f.handleExpression(node.ChildByFieldName("argument"))
		return e

	case "update_expression":
		op := f.operatorText(node)
		arg := node.ChildByFieldName("argument")
		postfix := arg != nil && node.StartByte() == arg.StartByte()
		e := graph.NewUnaryOperator(op, postfix, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Operand = f.handleExpression(arg)
		markWrite(e.Operand, "readwrite")
		return e

	case "cast_expression":
		e := graph.NewCastExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Type = ctype.Parse(f.text(node.ChildByFieldName("type")), true)
		e.Operand = f.handleExpression(node.ChildByFieldName("value"))
		return e

	case "subscript_expression":
		e := graph.NewArraySubscriptExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Array = f.handleExpression(node.ChildByFieldName("argument"))
		idx := node.ChildByFieldName("index")
		if idx == nil {
			idx = node.ChildByFieldName("indices")
		}
		e.Index = f.handleExpression(idx)
		return e

	case "conditional_expression":
		e := graph.NewConditionalExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Condition = f.handleExpression(node.ChildByFieldName("condition"))
		e.Then = f.handleExpression(node.ChildByFieldName("consequence"))
		e.Else = f.handleExpression(node.ChildByFieldName("alternative"))
		return e

	case "initializer_list":
		e := graph.NewInitializerListExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		for i := 0; i < int(node.NamedChildCount()); i++ {
			e.Initializers = append(e.Initializers, f.handleExpression(node.NamedChild(i)))
		}
		return e

	case "new_expression":
		e := graph.NewNewExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		typeText := f.text(node.ChildByFieldName("type"))
		ce := graph.NewConstructExpr(typeText, f.text(node), f.location(node))
		ce.Type = ctype.Parse(typeText, true)
		if args := node.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				ce.Arguments = append(ce.Arguments, f.handleExpression(args.NamedChild(i)))
			}
		}
		e.Initializer = ce
		t := ctype.Parse(typeText, true)
		t.Wrappers = append(t.Wrappers, ctype.Wrapper{Kind: ctype.Pointer})
		e.Type = t
		return e

	case "delete_expression":
		e := graph.NewDeleteExpr(f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		if node.NamedChildCount() > 0 {
			e.Operand = f.handleExpression(node.NamedChild(int(node.NamedChildCount()) - 1))
		}
		return e

	case "comma_expression":
		// Model as left-to-right binary evaluation.
		e := graph.NewBinaryOperator(",", f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		e.Lhs = f.handleExpression(node.ChildByFieldName("left"))
		e.Rhs = f.handleExpression(node.ChildByFieldName("right"))
		return e

	case "sizeof_expression":
		e := graph.NewUnaryOperator("sizeof", false, f.text(node), f.location(node))
		e.Scope = f.scope.CurrentScope()
		if v := node.ChildByFieldName("value"); v != nil {
			e.Operand = f.handleExpression(v)
		}
		e.Type = ctype.NewObjectType("unsigned long")
		return e
	}

	r := graph.NewDeclaredReference(f.text(node), f.text(node), f.location(node))
	r.Scope = f.scope.CurrentScope()
	r.Unimplemented = true
	f.logger.Debug("untranslated expression", "kind", node.Type(), "file", f.file)
	return r
}

// handleCall translates call expressions, distinguishing member calls,
// constructions of known records, and plain calls.
func (f *Frontend) handleCall(node *sitter.Node) graph.Expression {
	fnNode := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")

	if fnNode != nil && fnNode.Type() == "field_expression" {
		mc := graph.NewMemberCallExpr(
			f.text(fnNode.ChildByFieldName("field")),
			fieldOperator(f, fnNode),
			f.text(node), f.location(node))
		mc.Scope = f.scope.CurrentScope()
		mc.Operand = f.handleExpression(fnNode.ChildByFieldName("argument"))
		f.appendArguments(args, &mc.CallExpr)
		return mc
	}

	name := f.text(fnNode)
	if _, isRecord := f.records[name]; isRecord {
		ce := graph.NewConstructExpr(name, f.text(node), f.location(node))
		ce.Scope = f.scope.CurrentScope()
		ce.Type = ctype.Parse(name, true)
		if args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				ce.Arguments = append(ce.Arguments, f.handleExpression(args.NamedChild(i)))
			}
		}
		return ce
	}

	c := graph.NewCallExpr(name, f.text(node), f.location(node))
	c.Scope = f.scope.CurrentScope()
	if fnNode != nil && fnNode.Type() != "identifier" && fnNode.Type() != "qualified_identifier" {
		// Calls through an expression (function pointer dereference,
		// array element) keep the callee expression.
		c.Callee = f.handleExpression(fnNode)
	}
	f.appendArguments(args, c)
	return c
}

func (f *Frontend) appendArguments(args *sitter.Node, call *graph.CallExpr) {
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		call.AddArgument(f.handleExpression(args.NamedChild(i)))
	}
}

func (f *Frontend) handleFieldExpression(node *sitter.Node) graph.Expression {
	e := graph.NewMemberExpr(
		f.text(node.ChildByFieldName("field")),
		fieldOperator(f, node),
		f.text(node), f.location(node))
	e.Scope = f.scope.CurrentScope()
	e.Operand = f.handleExpression(node.ChildByFieldName("argument"))
	return e
}

// fieldOperator distinguishes -> from . access on a field expression.
func fieldOperator(f *Frontend, node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		switch f.text(node.Child(i)) {
		case "->":
			return "->"
		case ".":
			return "."
		}
	}
	return "."
}

// operatorText finds the operator token of an operator expression.
func (f *Frontend) operatorText(node *sitter.Node) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return f.text(op)
	}
	return ""
}

func (f *Frontend) handleNumberLiteral(node *sitter.Node) *graph.Literal {
	text := f.text(node)
	clean := strings.TrimRight(text, "uUlLfF")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		t := "int"
		if strings.ContainsAny(text, "lL") {
			t = "long"
		}
		return graph.NewLiteral(i, ctype.NewObjectType(t), text, f.location(node))
	}
	if v, err := strconv.ParseFloat(clean, 64); err == nil {
		t := "double"
		if strings.ContainsAny(text, "fF") {
			t = "float"
		}
		return graph.NewLiteral(v, ctype.NewObjectType(t), text, f.location(node))
	}
	return graph.NewLiteral(text, ctype.NewUnknownType(), text, f.location(node))
}

// markWrite flags the written side of assignments and updates so the
// data flow pass knows which references define values.
func markWrite(e graph.Expression, access string) {
	switch v := e.(type) {
	case *graph.DeclaredReference:
		v.Access = access
	case *graph.MemberExpr:
		// Member writes flow into the base object.
	case *graph.ArraySubscriptExpr:
	case *graph.UnaryOperator:
		if v.Operator == "*" {
			markWrite(v.Operand, access)
		}
	}
}
