package passes

import (
	"context"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// CallResolver connects call expressions to their candidate callees.
// Resolution is by name, then by arity and argument type compatibility.
// Member calls are restricted to the base type and its super chain, plus
// every override in derived records to model virtual dispatch. A member
// call whose base type is unknown over-approximates: every record's
// method with the name becomes a candidate.
type CallResolver struct{}

func NewCallResolver() *CallResolver { return &CallResolver{} }

func (p *CallResolver) Name() string { return "CallResolver" }

func (p *CallResolver) Run(_ context.Context, pc *Context) error {
	idx := buildIndex(pc)
	for _, unit := range pc.Units {
		delim := pc.Delimiter(unit)
		for _, c := range callablesOf(unit) {
			if c.fn.Body == nil {
				continue
			}
			graph.Walk(c.fn.Body, func(n graph.Node) bool {
				p.resolveCall(n, c.record, delim, idx)
				return true
			})
		}
	}
	return nil
}

func (p *CallResolver) resolveCall(n graph.Node, rec *graph.RecordDecl, delim string, idx *index) {
	switch call := n.(type) {
	case *graph.MemberCallExpr:
		p.resolveMemberCall(call, rec, idx)
	case *graph.ConstructExpr:
		p.resolveConstruction(call, idx)
	case *graph.CallExpr:
		p.resolvePlainCall(call, rec, delim, idx)
	}
}

func (p *CallResolver) resolvePlainCall(call *graph.CallExpr, rec *graph.RecordDecl, delim string, idx *index) {
	if call.Callee != nil {
		// Calls through an expression (function pointers) stay symbolic.
		call.Unresolved = true
		return
	}
	matched := false
	for _, fn := range idx.functions[call.Name] {
		if signatureMatches(fn, call.Arguments) {
			p.invoke(call, fn)
			matched = true
		}
	}
	if !matched && rec != nil {
		// A bare name inside a method body may target a sibling method.
		for _, m := range methodsNamed(rec, call.LocalName(delim)) {
			if signatureMatches(&m.FunctionDecl, call.Arguments) {
				p.invoke(call, m)
				matched = true
			}
		}
	}
	if !matched {
		call.Unresolved = true
	}
}

func (p *CallResolver) resolveMemberCall(call *graph.MemberCallExpr, rec *graph.RecordDecl, idx *index) {
	base := baseRecordOf(call.Operand, rec)
	if base == nil {
		// Unknown base type: over-approximate by member name.
		matched := false
		for _, m := range idx.methods[call.Name] {
			if signatureMatches(&m.FunctionDecl, call.Arguments) {
				p.invoke(call, m)
				matched = true
			}
		}
		if !matched {
			call.Unresolved = true
		}
		return
	}

	var candidates []*graph.MethodDecl
	candidates = append(candidates, methodsNamed(base, call.Name)...)
	for _, other := range idx.ordered {
		if derivesFromRecord(other, base) {
			for _, m := range other.Methods {
				if m.Name == call.Name {
					candidates = append(candidates, m)
				}
			}
		}
	}

	matched := false
	seen := map[*graph.NodeBase]bool{}
	for _, m := range candidates {
		if seen[m.Base()] {
			continue
		}
		seen[m.Base()] = true
		if signatureMatches(&m.FunctionDecl, call.Arguments) {
			p.invoke(call, m)
			matched = true
		}
	}
	if !matched {
		call.Unresolved = true
	}
}

func (p *CallResolver) resolveConstruction(call *graph.ConstructExpr, idx *index) {
	rec, ok := idx.records[call.Name]
	if !ok {
		call.Unresolved = true
		return
	}
	if call.Type == nil || call.Type.Record == nil {
		call.Type = rec.Type()
	}
	matched := false
	for _, c := range rec.Constructors {
		if signatureMatches(&c.FunctionDecl, call.Arguments) {
			p.invoke(call, c)
			matched = true
		}
	}
	if !matched {
		call.Unresolved = true
	}
}

func (p *CallResolver) invoke(call graph.Node, target graph.Node) {
	if !graph.HasEdge(call, graph.Invokes, target) {
		graph.AddEdge(call, graph.Invokes, target)
	}
}

// signatureMatches checks arity first, honoring variadic signatures and
// trailing defaults, then argument type compatibility. Unknown types
// never rule a candidate out.
func signatureMatches(fn *graph.FunctionDecl, args []graph.Expression) bool {
	fixed := fn.FixedParameterCount()
	switch {
	case fn.IsVariadic():
		if len(args) < fixed {
			return false
		}
	case len(args) > fixed:
		return false
	case len(args) < fixed:
		for i := len(args); i < fixed; i++ {
			if fn.Parameters[i].Default == nil {
				return false
			}
		}
	}
	for i := 0; i < len(args) && i < fixed; i++ {
		at := graph.ExpressionType(args[i])
		pt := fn.Parameters[i].Type
		if !ctype.Compatible(at, pt) {
			return false
		}
	}
	return true
}
