package graph

import "cpg/internal/ctype"

// Literal is a constant of any builtin kind. Value holds the parsed
// representation (string, int64, float64, bool, or nil).
type Literal struct {
	NodeBase
	Value any
	Type  *ctype.Type
}

func NewLiteral(value any, typ *ctype.Type, code string, loc *PhysicalLocation) *Literal {
	e := &Literal{Value: value, Type: typ}
	stamp(&e.NodeBase, code, code, loc)
	return e
}

// DeclaredReference is a name used in expression position. The variable
// usage resolver links it to its declaration with a REFERS_TO edge and
// sets Refers.
type DeclaredReference struct {
	NodeBase
	Type   *ctype.Type
	Refers ValueDeclaration
	// Access records how the reference is used: "read", "write", or
	// "readwrite" for compound assignment and increment operators.
	Access string
}

func NewDeclaredReference(name, code string, loc *PhysicalLocation) *DeclaredReference {
	e := &DeclaredReference{Access: "read"}
	stamp(&e.NodeBase, name, code, loc)
	return e
}

// MemberExpr accesses a member of a base expression, via "." or "->".
type MemberExpr struct {
	NodeBase
	Operand  Expression
	Operator string
	Type     *ctype.Type
	Refers   ValueDeclaration
}

func NewMemberExpr(name, op, code string, loc *PhysicalLocation) *MemberExpr {
	e := &MemberExpr{Operator: op}
	stamp(&e.NodeBase, name, code, loc)
	return e
}

// CallExpr calls a callee with positional arguments. Callee is nil for
// plain name calls, where the name alone identifies the target; the call
// resolver adds INVOKES edges.
type CallExpr struct {
	NodeBase
	Callee    Expression
	Arguments []Expression
	Type      *ctype.Type
}

func NewCallExpr(name, code string, loc *PhysicalLocation) *CallExpr {
	e := &CallExpr{}
	stamp(&e.NodeBase, name, code, loc)
	return e
}

func (e *CallExpr) AddArgument(arg Expression) {
	e.Arguments = append(e.Arguments, arg)
}

// MemberCallExpr calls a member of a base object: base.f(...) or
// base->f(...).
type MemberCallExpr struct {
	CallExpr
	Operand  Expression
	Operator string
}

func NewMemberCallExpr(name, op, code string, loc *PhysicalLocation) *MemberCallExpr {
	e := &MemberCallExpr{Operator: op}
	stamp(&e.NodeBase, name, code, loc)
	return e
}

// ConstructExpr creates a record instance. Resolved constructor calls get
// an INVOKES edge to the ConstructorDecl.
type ConstructExpr struct {
	NodeBase
	Arguments []Expression
	Type      *ctype.Type
}

func NewConstructExpr(name, code string, loc *PhysicalLocation) *ConstructExpr {
	e := &ConstructExpr{}
	stamp(&e.NodeBase, name, code, loc)
	return e
}

// NewExpr is a heap allocation wrapping the construction.
type NewExpr struct {
	NodeBase
	Initializer Expression
	Type        *ctype.Type
}

func NewNewExpr(code string, loc *PhysicalLocation) *NewExpr {
	e := &NewExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// DeleteExpr releases a heap allocation.
type DeleteExpr struct {
	NodeBase
	Operand Expression
}

func NewDeleteExpr(code string, loc *PhysicalLocation) *DeleteExpr {
	e := &DeleteExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// BinaryOperator applies an infix operator. Assignment operators ("=",
// "+=", ...) make the left side a write target for data flow.
type BinaryOperator struct {
	NodeBase
	Operator string
	Lhs      Expression
	Rhs      Expression
	Type     *ctype.Type
}

func NewBinaryOperator(op, code string, loc *PhysicalLocation) *BinaryOperator {
	e := &BinaryOperator{Operator: op}
	stamp(&e.NodeBase, op, code, loc)
	return e
}

// IsAssignment reports whether the operator writes to its left side.
func (e *BinaryOperator) IsAssignment() bool {
	switch e.Operator {
	case "=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=":
		return true
	}
	return false
}

// IsShortCircuit reports whether evaluation of the right side is
// conditional on the left.
func (e *BinaryOperator) IsShortCircuit() bool {
	return e.Operator == "&&" || e.Operator == "||"
}

// UnaryOperator applies a prefix or postfix operator.
type UnaryOperator struct {
	NodeBase
	Operator string
	Operand  Expression
	Postfix  bool
	Type     *ctype.Type
}

func NewUnaryOperator(op string, postfix bool, code string, loc *PhysicalLocation) *UnaryOperator {
	e := &UnaryOperator{Operator: op, Postfix: postfix}
	stamp(&e.NodeBase, op, code, loc)
	return e
}

// IsReadWrite reports whether the operand is both read and written.
func (e *UnaryOperator) IsReadWrite() bool {
	return e.Operator == "++" || e.Operator == "--"
}

// CastExpr converts the operand to an explicit target type.
type CastExpr struct {
	NodeBase
	Operand Expression
	Type    *ctype.Type
}

func NewCastExpr(code string, loc *PhysicalLocation) *CastExpr {
	e := &CastExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// ArraySubscriptExpr indexes into an array or pointer.
type ArraySubscriptExpr struct {
	NodeBase
	Array Expression
	Index Expression
	Type  *ctype.Type
}

func NewArraySubscriptExpr(code string, loc *PhysicalLocation) *ArraySubscriptExpr {
	e := &ArraySubscriptExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// ConditionalExpr is the ternary operator.
type ConditionalExpr struct {
	NodeBase
	Condition Expression
	Then      Expression
	Else      Expression
	Type      *ctype.Type
}

func NewConditionalExpr(code string, loc *PhysicalLocation) *ConditionalExpr {
	e := &ConditionalExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// InitializerListExpr is a braced initializer.
type InitializerListExpr struct {
	NodeBase
	Initializers []Expression
	Type         *ctype.Type
}

func NewInitializerListExpr(code string, loc *PhysicalLocation) *InitializerListExpr {
	e := &InitializerListExpr{}
	stamp(&e.NodeBase, "", code, loc)
	return e
}

// ExpressionType returns the resolved type of an expression node, or the
// unknown type when the node carries none.
func ExpressionType(e Expression) *ctype.Type {
	switch v := e.(type) {
	case *Literal:
		return orUnknown(v.Type)
	case *DeclaredReference:
		return orUnknown(v.Type)
	case *MemberExpr:
		return orUnknown(v.Type)
	case *MemberCallExpr:
		return orUnknown(v.Type)
	case *CallExpr:
		return orUnknown(v.Type)
	case *ConstructExpr:
		return orUnknown(v.Type)
	case *NewExpr:
		return orUnknown(v.Type)
	case *BinaryOperator:
		return orUnknown(v.Type)
	case *UnaryOperator:
		return orUnknown(v.Type)
	case *CastExpr:
		return orUnknown(v.Type)
	case *ArraySubscriptExpr:
		return orUnknown(v.Type)
	case *ConditionalExpr:
		return orUnknown(v.Type)
	case *InitializerListExpr:
		return orUnknown(v.Type)
	default:
		return ctype.NewUnknownType()
	}
}

// SetExpressionType stores a resolved type back on the node when the
// variant has a type slot.
func SetExpressionType(e Expression, t *ctype.Type) {
	switch v := e.(type) {
	case *Literal:
		v.Type = t
	case *DeclaredReference:
		v.Type = t
	case *MemberExpr:
		v.Type = t
	case *MemberCallExpr:
		v.Type = t
	case *CallExpr:
		v.Type = t
	case *ConstructExpr:
		v.Type = t
	case *NewExpr:
		v.Type = t
	case *BinaryOperator:
		v.Type = t
	case *UnaryOperator:
		v.Type = t
	case *CastExpr:
		v.Type = t
	case *ArraySubscriptExpr:
		v.Type = t
	case *ConditionalExpr:
		v.Type = t
	case *InitializerListExpr:
		v.Type = t
	}
}

func orUnknown(t *ctype.Type) *ctype.Type {
	if t == nil {
		return ctype.NewUnknownType()
	}
	return t
}

func (*Literal) stmtNode()             {}
func (*DeclaredReference) stmtNode()   {}
func (*MemberExpr) stmtNode()          {}
func (*CallExpr) stmtNode()            {}
func (*MemberCallExpr) stmtNode()      {}
func (*ConstructExpr) stmtNode()       {}
func (*NewExpr) stmtNode()             {}
func (*DeleteExpr) stmtNode()          {}
func (*BinaryOperator) stmtNode()      {}
func (*UnaryOperator) stmtNode()       {}
func (*CastExpr) stmtNode()            {}
func (*ArraySubscriptExpr) stmtNode()  {}
func (*ConditionalExpr) stmtNode()     {}
func (*InitializerListExpr) stmtNode() {}

func (*Literal) exprNode()             {}
func (*DeclaredReference) exprNode()   {}
func (*MemberExpr) exprNode()          {}
func (*CallExpr) exprNode()            {}
func (*MemberCallExpr) exprNode()      {}
func (*ConstructExpr) exprNode()       {}
func (*NewExpr) exprNode()             {}
func (*DeleteExpr) exprNode()          {}
func (*BinaryOperator) exprNode()      {}
func (*UnaryOperator) exprNode()       {}
func (*CastExpr) exprNode()            {}
func (*ArraySubscriptExpr) exprNode()  {}
func (*ConditionalExpr) exprNode()     {}
func (*InitializerListExpr) exprNode() {}
