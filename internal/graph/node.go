package graph

import (
	"sync/atomic"
)

// nextID hands out stable numeric identities. Node identity is pointer
// identity; the ID exists for deterministic ordering and export keys.
var nextID atomic.Uint64

// Node is implemented by every graph entity.
type Node interface {
	Base() *NodeBase
}

// Declaration is the marker for the declaration family.
type Declaration interface {
	Node
	declNode()
}

// Statement is the marker for the statement family. Expressions implement
// it too, so an expression can stand where a statement is expected.
type Statement interface {
	Node
	stmtNode()
}

// Expression is the marker for the expression family.
type Expression interface {
	Statement
	exprNode()
}

// ValueDeclaration is a declaration that introduces a typed value:
// variables, fields, parameters, enum constants, and functions.
type ValueDeclaration interface {
	Declaration
	valueDeclNode()
}

// NodeBase carries the shared attributes of every node variant.
type NodeBase struct {
	ID       uint64
	Name     string // simple or qualified name
	Code     string // originating source text
	Location *PhysicalLocation
	Scope    *Scope // enclosing scope at creation time
	Comment  string

	// Unresolved marks references and calls whose resolver found no target.
	Unresolved bool
	// Implicit marks nodes synthesized by passes or frontends rather than
	// parsed from source (e.g. default constructors).
	Implicit bool
	// Unimplemented marks stub nodes produced for raw-AST kinds the
	// frontend does not translate. The raw source text is kept in Code.
	Unimplemented bool

	in  []*Edge
	out []*Edge
}

func (b *NodeBase) Base() *NodeBase { return b }

// Incoming returns the incoming edges in insertion order.
func (b *NodeBase) Incoming() []*Edge { return b.in }

// Outgoing returns the outgoing edges in insertion order.
func (b *NodeBase) Outgoing() []*Edge { return b.out }

func stamp(b *NodeBase, name, code string, loc *PhysicalLocation) {
	b.ID = nextID.Add(1)
	b.Name = name
	b.Code = code
	b.Location = loc
}

// LocalName returns the part of the node's name after the last occurrence
// of the given delimiter, or the whole name if it is not qualified.
func (b *NodeBase) LocalName(delimiter string) string {
	if delimiter == "" {
		return b.Name
	}
	name := b.Name
	for i := len(name) - len(delimiter); i >= 0; i-- {
		if name[i:i+len(delimiter)] == delimiter {
			return name[i+len(delimiter):]
		}
	}
	return name
}
