package graph

// Children returns the direct structural children of n in source order.
// Nil slots are skipped so callers never see nil children.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c == nil {
			return
		}
		out = append(out, c)
	}

	switch v := n.(type) {
	case *TranslationUnitDecl:
		for _, d := range v.Declarations {
			add(d)
		}
	case *NamespaceDecl:
		for _, d := range v.Declarations {
			add(d)
		}
	case *RecordDecl:
		for _, f := range v.Fields {
			add(f)
		}
		for _, m := range v.Methods {
			add(m)
		}
		for _, c := range v.Constructors {
			add(c)
		}
		for _, r := range v.Records {
			add(r)
		}
	case *FunctionDecl:
		for _, p := range v.Parameters {
			add(p)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *MethodDecl:
		for _, p := range v.Parameters {
			add(p)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *ConstructorDecl:
		for _, p := range v.Parameters {
			add(p)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *FieldDecl:
		if v.Initializer != nil {
			add(v.Initializer)
		}
	case *VariableDecl:
		if v.Initializer != nil {
			add(v.Initializer)
		}
	case *ParameterDecl:
		if v.Default != nil {
			add(v.Default)
		}
	case *EnumDecl:
		for _, c := range v.Constants {
			add(c)
		}
	case *EnumConstantDecl:
		if v.Initializer != nil {
			add(v.Initializer)
		}
	case *TypedefDecl:

	case *Block:
		for _, s := range v.Statements {
			add(s)
		}
	case *IfStmt:
		if v.Condition != nil {
			add(v.Condition)
		}
		if v.Then != nil {
			add(v.Then)
		}
		if v.Else != nil {
			add(v.Else)
		}
	case *WhileStmt:
		if v.Condition != nil {
			add(v.Condition)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *DoStmt:
		if v.Body != nil {
			add(v.Body)
		}
		if v.Condition != nil {
			add(v.Condition)
		}
	case *ForStmt:
		if v.Init != nil {
			add(v.Init)
		}
		if v.Condition != nil {
			add(v.Condition)
		}
		if v.Update != nil {
			add(v.Update)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *ForEachStmt:
		if v.Variable != nil {
			add(v.Variable)
		}
		if v.Iterable != nil {
			add(v.Iterable)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *SwitchStmt:
		if v.Selector != nil {
			add(v.Selector)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *CaseStmt:
		if v.Expression != nil {
			add(v.Expression)
		}
	case *ReturnStmt:
		if v.Value != nil {
			add(v.Value)
		}
	case *LabelStmt:
		if v.Statement != nil {
			add(v.Statement)
		}
	case *TryStmt:
		if v.Body != nil {
			add(v.Body)
		}
		for _, c := range v.Catches {
			add(c)
		}
		if v.Finally != nil {
			add(v.Finally)
		}
	case *CatchClause:
		if v.Parameter != nil {
			add(v.Parameter)
		}
		if v.Body != nil {
			add(v.Body)
		}
	case *DeclStmt:
		for _, d := range v.Declarations {
			add(d)
		}

	case *MemberExpr:
		if v.Operand != nil {
			add(v.Operand)
		}
	case *CallExpr:
		if v.Callee != nil {
			add(v.Callee)
		}
		for _, a := range v.Arguments {
			add(a)
		}
	case *MemberCallExpr:
		if v.Operand != nil {
			add(v.Operand)
		}
		if v.Callee != nil {
			add(v.Callee)
		}
		for _, a := range v.Arguments {
			add(a)
		}
	case *ConstructExpr:
		for _, a := range v.Arguments {
			add(a)
		}
	case *NewExpr:
		if v.Initializer != nil {
			add(v.Initializer)
		}
	case *DeleteExpr:
		if v.Operand != nil {
			add(v.Operand)
		}
	case *BinaryOperator:
		if v.Lhs != nil {
			add(v.Lhs)
		}
		if v.Rhs != nil {
			add(v.Rhs)
		}
	case *UnaryOperator:
		if v.Operand != nil {
			add(v.Operand)
		}
	case *CastExpr:
		if v.Operand != nil {
			add(v.Operand)
		}
	case *ArraySubscriptExpr:
		if v.Array != nil {
			add(v.Array)
		}
		if v.Index != nil {
			add(v.Index)
		}
	case *ConditionalExpr:
		if v.Condition != nil {
			add(v.Condition)
		}
		if v.Then != nil {
			add(v.Then)
		}
		if v.Else != nil {
			add(v.Else)
		}
	case *InitializerListExpr:
		for _, e := range v.Initializers {
			add(e)
		}
	}
	return out
}

// Walk visits n and every structural descendant in pre-order. Returning
// false from visit prunes the subtree below the current node.
func Walk(n Node, visit func(Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, visit)
	}
}

// Collect returns every descendant of n (including n) that matches pred.
func Collect(n Node, pred func(Node) bool) []Node {
	var out []Node
	Walk(n, func(c Node) bool {
		if pred(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}
