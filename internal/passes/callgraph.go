package passes

import (
	"context"

	"cpg/internal/graph"
)

// CallGraphClosure adds Reaches edges: f reaches g when g is a candidate
// callee of some call in f's body, directly or through intermediates.
// The closure is computed per function with a breadth-first walk over
// the direct call relation.
type CallGraphClosure struct{}

func NewCallGraphClosure() *CallGraphClosure { return &CallGraphClosure{} }

func (p *CallGraphClosure) Name() string { return "CallGraphClosure" }

func (p *CallGraphClosure) Run(_ context.Context, pc *Context) error {
	direct := make(map[*graph.NodeBase][]*graph.FunctionDecl)
	var fns []*graph.FunctionDecl
	for _, unit := range pc.Units {
		for _, c := range callablesOf(unit) {
			fns = append(fns, c.fn)
			if c.fn.Body == nil {
				continue
			}
			seen := map[*graph.NodeBase]bool{}
			graph.Walk(c.fn.Body, func(n graph.Node) bool {
				switch n.(type) {
				case *graph.CallExpr, *graph.MemberCallExpr, *graph.ConstructExpr:
					for _, g := range graph.InvokesTargets(n) {
						if !seen[g.Base()] {
							seen[g.Base()] = true
							direct[c.fn.Base()] = append(direct[c.fn.Base()], g)
						}
					}
				}
				return true
			})
		}
	}

	for _, f := range fns {
		reached := map[*graph.NodeBase]bool{}
		queue := append([]*graph.FunctionDecl(nil), direct[f.Base()]...)
		for len(queue) > 0 {
			g := queue[0]
			queue = queue[1:]
			if reached[g.Base()] {
				continue
			}
			reached[g.Base()] = true
			if !graph.HasEdge(f, graph.Reaches, g) {
				graph.AddEdge(f, graph.Reaches, g)
			}
			queue = append(queue, direct[g.Base()]...)
		}
	}
	return nil
}
