package passes

import (
	"context"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// TypeResolver binds object types to the record declarations they name
// and re-expands aliases registered after the type was first parsed. It
// iterates to a fixed point: resolving one type can make another
// resolvable, for example a super type naming a record from a later unit.
type TypeResolver struct{}

func NewTypeResolver() *TypeResolver { return &TypeResolver{} }

func (p *TypeResolver) Name() string { return "TypeResolver" }

func (p *TypeResolver) Run(_ context.Context, pc *Context) error {
	idx := buildIndex(pc)
	for i := 0; i < pc.FixpointCap; i++ {
		changes := 0
		for _, unit := range pc.Units {
			graph.Walk(unit, func(n graph.Node) bool {
				changes += p.resolveNode(n, idx)
				return true
			})
		}
		if changes == 0 {
			return nil
		}
	}
	pc.Logger.Warn("type resolution hit the iteration cap", "cap", pc.FixpointCap)
	return nil
}

func (p *TypeResolver) resolveNode(n graph.Node, idx *index) int {
	changes := 0
	switch v := n.(type) {
	case *graph.VariableDecl:
		changes += p.resolveSlot(&v.Type, idx)
	case *graph.FieldDecl:
		changes += p.resolveSlot(&v.Type, idx)
	case *graph.ParameterDecl:
		changes += p.resolveSlot(&v.Type, idx)
	case *graph.EnumConstantDecl:
		changes += p.resolveSlot(&v.Type, idx)
	case *graph.TypedefDecl:
		changes += p.resolveSlot(&v.Target, idx)
	case *graph.ConstructorDecl:
		changes += p.resolveSlot(&v.ReturnType, idx)
		changes += p.resolveSlot(&v.Type, idx)
	case *graph.MethodDecl:
		changes += p.resolveSlot(&v.ReturnType, idx)
	case *graph.FunctionDecl:
		changes += p.resolveSlot(&v.ReturnType, idx)
	case *graph.RecordDecl:
		for i := range v.SuperTypes {
			changes += p.resolveSlot(&v.SuperTypes[i], idx)
			if base, ok := v.SuperTypes[i].Record.(*graph.RecordDecl); ok {
				if !graph.HasEdge(v, graph.SuperClass, base) {
					graph.AddEdge(v, graph.SuperClass, base)
					changes++
				}
			}
		}
	default:
		if e, ok := n.(graph.Expression); ok {
			t := graph.ExpressionType(e)
			before := t
			changes += p.resolveSlot(&t, idx)
			if t != before {
				graph.SetExpressionType(e, t)
			}
		}
	}
	return changes
}

// resolveSlot rewrites *slot in place: alias expansion first, then record
// binding. Function types recurse into their signature.
func (p *TypeResolver) resolveSlot(slot **ctype.Type, idx *index) int {
	t := *slot
	if t == nil {
		return 0
	}
	changes := 0
	if t.Kind == ctype.Function {
		for i := range t.Parameters {
			changes += p.resolveSlot(&t.Parameters[i], idx)
		}
		changes += p.resolveSlot(&t.ReturnType, idx)
		return changes
	}
	if t.Kind != ctype.Object {
		return 0
	}
	if t.Record == nil {
		if rt := ctype.Refresh(t); rt != t {
			*slot = rt
			t = rt
			changes++
			if t.Kind != ctype.Object {
				return changes
			}
		}
	}
	if t.Record == nil {
		if rec, ok := idx.records[t.Name]; ok {
			t.Record = rec
			changes++
		}
	}
	return changes
}
