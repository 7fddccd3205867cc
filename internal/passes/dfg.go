package passes

import (
	"context"

	"cpg/internal/graph"
)

// DFGPass adds data flow edges. Every write (assignment, increment,
// initializer, parameter binding) sends the written value into the
// declaration; every read receives an edge from each write that reaches
// it along the evaluation order. Reaching definitions are computed per
// function with a worklist over the EOG, so joins keep all incoming
// writes and loops converge.
type DFGPass struct{}

func NewDFGPass() *DFGPass { return &DFGPass{} }

func (p *DFGPass) Name() string { return "DFGPass" }

func (p *DFGPass) Run(_ context.Context, pc *Context) error {
	for _, unit := range pc.Units {
		for _, c := range callablesOf(unit) {
			if c.fn.Body == nil {
				continue
			}
			p.analyze(c.fn)
		}
	}
	return nil
}

// writeTarget returns the declaration a node writes, or nil. The write
// point is the operator node itself, evaluated after its operands.
func writeTarget(n graph.Node) graph.ValueDeclaration {
	switch v := n.(type) {
	case *graph.BinaryOperator:
		if !v.IsAssignment() {
			return nil
		}
		if ref, ok := v.Lhs.(*graph.DeclaredReference); ok {
			return ref.Refers
		}
		if member, ok := v.Lhs.(*graph.MemberExpr); ok {
			return member.Refers
		}
	case *graph.UnaryOperator:
		if !v.IsReadWrite() {
			return nil
		}
		if ref, ok := v.Operand.(*graph.DeclaredReference); ok {
			return ref.Refers
		}
	case *graph.VariableDecl:
		return v
	case *graph.ParameterDecl:
		return v
	}
	return nil
}

// writtenValue is the expression whose value the write stores, if any.
func writtenValue(n graph.Node) graph.Expression {
	switch v := n.(type) {
	case *graph.BinaryOperator:
		return v.Rhs
	case *graph.VariableDecl:
		return v.Initializer
	}
	return nil
}

func (p *DFGPass) analyze(fn *graph.FunctionDecl) {
	// The EOG node set, discovered from the function entry.
	nodes := []graph.Node{fn}
	seen := map[*graph.NodeBase]bool{fn.Base(): true}
	for i := 0; i < len(nodes); i++ {
		for _, succ := range graph.EOGSuccessors(nodes[i]) {
			if !seen[succ.Base()] {
				seen[succ.Base()] = true
				nodes = append(nodes, succ)
			}
		}
	}

	type defs map[graph.ValueDeclaration]map[*graph.NodeBase]graph.Node
	in := make(map[*graph.NodeBase]defs, len(nodes))
	out := make(map[*graph.NodeBase]defs, len(nodes))

	clone := func(d defs) defs {
		c := make(defs, len(d))
		for decl, writes := range d {
			w := make(map[*graph.NodeBase]graph.Node, len(writes))
			for k, v := range writes {
				w[k] = v
			}
			c[decl] = w
		}
		return c
	}

	worklist := append([]graph.Node(nil), nodes...)
	for len(worklist) > 0 {
		n := worklist[0]
		worklist = worklist[1:]
		b := n.Base()

		merged := make(defs)
		for _, pred := range graph.EOGPredecessors(n) {
			for decl, writes := range out[pred.Base()] {
				if merged[decl] == nil {
					merged[decl] = make(map[*graph.NodeBase]graph.Node)
				}
				for k, w := range writes {
					merged[decl][k] = w
				}
			}
		}
		in[b] = merged

		next := clone(merged)
		if decl := writeTarget(n); decl != nil {
			next[decl] = map[*graph.NodeBase]graph.Node{b: n}
		}
		if !defsEqual(out[b], next) {
			out[b] = next
			for _, succ := range graph.EOGSuccessors(n) {
				worklist = append(worklist, succ)
			}
		}
	}

	for _, n := range nodes {
		// Value into declaration at the write point.
		if decl := writeTarget(n); decl != nil {
			if value := writtenValue(n); value != nil {
				if !graph.HasEdge(value, graph.DFG, decl) {
					graph.AddEdge(value, graph.DFG, decl)
				}
			}
		}
		// Reaching writes into the read.
		ref, ok := n.(*graph.DeclaredReference)
		if !ok || ref.Refers == nil || ref.Access == "write" {
			continue
		}
		for _, w := range in[n.Base()][ref.Refers] {
			if !graph.HasEdge(w, graph.DFG, ref) {
				graph.AddEdge(w, graph.DFG, ref)
			}
		}
	}
}

func defsEqual(a, b map[graph.ValueDeclaration]map[*graph.NodeBase]graph.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for decl, aw := range a {
		bw, ok := b[decl]
		if !ok || len(aw) != len(bw) {
			return false
		}
		for k := range aw {
			if _, ok := bw[k]; !ok {
				return false
			}
		}
	}
	return true
}
