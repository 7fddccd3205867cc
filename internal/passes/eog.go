package passes

import (
	"context"

	"cpg/internal/graph"
)

// EOGPass builds intra-procedural evaluation order edges. Operands are
// evaluated left to right, then the expression node itself; statements
// chain sequentially within blocks. Conditional evaluations carry a
// Branch property on their outgoing edges, short-circuit operators split
// the left operand's exits into the right operand and the join, and
// loops get back edges to their condition.
type EOGPass struct{}

func NewEOGPass() *EOGPass { return &EOGPass{} }

func (p *EOGPass) Name() string { return "EOGPass" }

func (p *EOGPass) Run(_ context.Context, pc *Context) error {
	for _, unit := range pc.Units {
		for _, c := range callablesOf(unit) {
			if c.fn.Body == nil {
				continue
			}
			b := &eogBuilder{}
			b.frontier = []pending{{node: c.fn}}
			for _, param := range c.fn.Parameters {
				b.connect(param)
			}
			b.handleStatement(c.fn.Body)
		}
	}
	return nil
}

// pending is one open exit waiting for its successor, with the branch
// outcome the edge will carry.
type pending struct {
	node   graph.Node
	branch *bool
}

// loopFrame collects the exits of break and continue statements until
// the enclosing construct knows where they land. Switch frames only ever
// receive breaks.
type loopFrame struct {
	isLoop    bool
	breaks    []pending
	continues []pending
}

type eogBuilder struct {
	frontier []pending
	frames   []*loopFrame
}

func branchValue(v bool) *bool { return &v }

func withBranch(exits []pending, v bool) []pending {
	out := make([]pending, len(exits))
	for i, e := range exits {
		out[i] = pending{node: e.node, branch: branchValue(v)}
	}
	return out
}

// connect wires every open exit to next and makes next the only exit.
func (b *eogBuilder) connect(next graph.Node) {
	b.connectTo(b.frontier, next)
	b.frontier = []pending{{node: next}}
}

// connectTo adds edges without touching the frontier; loops use it for
// their back edges.
func (b *eogBuilder) connectTo(exits []pending, next graph.Node) {
	for _, e := range exits {
		edge := graph.AddEdge(e.node, graph.EOG, next)
		edge.Branch = e.branch
	}
}

func (b *eogBuilder) handleStatement(s graph.Statement) {
	switch v := s.(type) {
	case nil:
	case *graph.Block:
		for _, stmt := range v.Statements {
			b.handleStatement(stmt)
		}

	case *graph.DeclStmt:
		for _, d := range v.Declarations {
			if vd, ok := d.(*graph.VariableDecl); ok {
				b.handleExpression(vd.Initializer)
				b.connect(vd)
			}
		}

	case *graph.IfStmt:
		b.handleExpression(v.Condition)
		condExits := b.frontier
		b.frontier = withBranch(condExits, true)
		b.handleStatement(v.Then)
		thenExits := b.frontier
		elseExits := withBranch(condExits, false)
		if v.Else != nil {
			b.frontier = elseExits
			b.handleStatement(v.Else)
			elseExits = b.frontier
		}
		b.frontier = append(thenExits, elseExits...)

	case *graph.WhileStmt:
		entry := entryOf(v.Condition)
		b.handleExpression(v.Condition)
		condExits := b.frontier
		frame := b.pushLoop()
		b.frontier = withBranch(condExits, true)
		b.handleStatement(v.Body)
		if entry != nil {
			b.connectTo(append(b.frontier, frame.continues...), entry)
		}
		b.popLoop()
		b.frontier = append(withBranch(condExits, false), frame.breaks...)

	case *graph.DoStmt:
		bodyEntry := entryOf(v.Body)
		frame := b.pushLoop()
		b.handleStatement(v.Body)
		b.frontier = append(b.frontier, frame.continues...)
		condEntry := entryOf(v.Condition)
		b.handleExpression(v.Condition)
		condExits := b.frontier
		if bodyEntry != nil {
			b.connectTo(withBranch(condExits, true), bodyEntry)
		} else if condEntry != nil {
			b.connectTo(withBranch(condExits, true), condEntry)
		}
		b.popLoop()
		b.frontier = append(withBranch(condExits, false), frame.breaks...)

	case *graph.ForStmt:
		b.handleStatement(v.Init)
		entry := entryOf(v.Condition)
		b.handleExpression(v.Condition)
		condExits := b.frontier
		frame := b.pushLoop()
		b.frontier = withBranch(condExits, true)
		b.handleStatement(v.Body)
		b.frontier = append(b.frontier, frame.continues...)
		b.handleExpression(v.Update)
		if entry != nil {
			b.connectTo(b.frontier, entry)
			b.frontier = nil
		}
		b.popLoop()
		b.frontier = append(withBranch(condExits, false), frame.breaks...)

	case *graph.ForEachStmt:
		b.handleExpression(v.Iterable)
		anchor := graph.Node(v)
		if v.Variable != nil {
			anchor = v.Variable
		}
		b.connect(anchor)
		varExit := b.frontier
		frame := b.pushLoop()
		b.frontier = withBranch(varExit, true)
		b.handleStatement(v.Body)
		b.connectTo(append(b.frontier, frame.continues...), anchor)
		b.popLoop()
		b.frontier = append(withBranch(varExit, false), frame.breaks...)

	case *graph.SwitchStmt:
		b.handleExpression(v.Selector)
		selExits := b.frontier
		frame := &loopFrame{}
		b.frames = append(b.frames, frame)
		b.frontier = nil
		sawDefault := false
		if v.Body != nil {
			for _, stmt := range v.Body.Statements {
				switch stmt.(type) {
				case *graph.CaseStmt, *graph.DefaultStmt:
					if _, ok := stmt.(*graph.DefaultStmt); ok {
						sawDefault = true
					}
					// Fall-through from the previous case joins the jump
					// from the selector.
					b.frontier = append(b.frontier, selExits...)
					b.connect(stmt)
				default:
					b.handleStatement(stmt)
				}
			}
		}
		b.frames = b.frames[:len(b.frames)-1]
		b.frontier = append(b.frontier, frame.breaks...)
		if !sawDefault {
			b.frontier = append(b.frontier, selExits...)
		}

	case *graph.ReturnStmt:
		b.handleExpression(v.Value)
		b.connect(v)
		b.frontier = nil

	case *graph.BreakStmt:
		b.connect(v)
		if len(b.frames) > 0 {
			frame := b.frames[len(b.frames)-1]
			frame.breaks = append(frame.breaks, b.frontier...)
		}
		b.frontier = nil

	case *graph.ContinueStmt:
		b.connect(v)
		for i := len(b.frames) - 1; i >= 0; i-- {
			if b.frames[i].isLoop {
				b.frames[i].continues = append(b.frames[i].continues, b.frontier...)
				break
			}
		}
		b.frontier = nil

	case *graph.LabelStmt:
		b.connect(v)
		b.handleStatement(v.Statement)

	case *graph.GotoStmt:
		b.connect(v)
		b.frontier = nil

	case *graph.TryStmt:
		b.handleStatement(v.Body)
		bodyExits := b.frontier
		allExits := append([]pending(nil), bodyExits...)
		for _, catch := range v.Catches {
			// Any point of the body may transfer here; the body's exits
			// stand in for that set.
			b.frontier = bodyExits
			if catch.Parameter != nil {
				b.connect(catch.Parameter)
			}
			b.handleStatement(catch.Body)
			allExits = append(allExits, b.frontier...)
		}
		b.frontier = allExits
		if v.Finally != nil {
			b.handleStatement(v.Finally)
		}

	case *graph.EmptyStmt:
		b.connect(v)

	case graph.Expression:
		b.handleExpression(v)

	default:
		b.connect(v)
	}
}

func (b *eogBuilder) handleExpression(e graph.Expression) {
	switch v := e.(type) {
	case nil:
		return

	case *graph.BinaryOperator:
		if v.IsShortCircuit() {
			b.handleExpression(v.Lhs)
			lhsExits := b.frontier
			taken := v.Operator == "&&"
			b.frontier = withBranch(lhsExits, taken)
			b.handleExpression(v.Rhs)
			b.frontier = append(b.frontier, withBranch(lhsExits, !taken)...)
			b.connect(v)
			return
		}
		b.handleExpression(v.Lhs)
		b.handleExpression(v.Rhs)
		b.connect(v)

	case *graph.UnaryOperator:
		b.handleExpression(v.Operand)
		b.connect(v)

	case *graph.MemberCallExpr:
		b.handleExpression(v.Operand)
		for _, arg := range v.Arguments {
			b.handleExpression(arg)
		}
		b.connect(v)

	case *graph.CallExpr:
		b.handleExpression(v.Callee)
		for _, arg := range v.Arguments {
			b.handleExpression(arg)
		}
		b.connect(v)

	case *graph.ConstructExpr:
		for _, arg := range v.Arguments {
			b.handleExpression(arg)
		}
		b.connect(v)

	case *graph.MemberExpr:
		b.handleExpression(v.Operand)
		b.connect(v)

	case *graph.CastExpr:
		b.handleExpression(v.Operand)
		b.connect(v)

	case *graph.ArraySubscriptExpr:
		b.handleExpression(v.Array)
		b.handleExpression(v.Index)
		b.connect(v)

	case *graph.ConditionalExpr:
		b.handleExpression(v.Condition)
		condExits := b.frontier
		b.frontier = withBranch(condExits, true)
		b.handleExpression(v.Then)
		thenExits := b.frontier
		b.frontier = withBranch(condExits, false)
		b.handleExpression(v.Else)
		b.frontier = append(b.frontier, thenExits...)
		b.connect(v)

	case *graph.InitializerListExpr:
		for _, el := range v.Initializers {
			b.handleExpression(el)
		}
		b.connect(v)

	case *graph.NewExpr:
		b.handleExpression(v.Initializer)
		b.connect(v)

	case *graph.DeleteExpr:
		b.handleExpression(v.Operand)
		b.connect(v)

	default:
		b.connect(e)
	}
}

func (b *eogBuilder) pushLoop() *loopFrame {
	frame := &loopFrame{isLoop: true}
	b.frames = append(b.frames, frame)
	return frame
}

func (b *eogBuilder) popLoop() {
	b.frames = b.frames[:len(b.frames)-1]
}

// entryOf finds the node evaluated first in the subtree, mirroring the
// order handleExpression and handleStatement produce.
func entryOf(n graph.Node) graph.Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *graph.Block:
		for _, s := range v.Statements {
			if e := entryOf(s); e != nil {
				return e
			}
		}
		return nil
	case *graph.DeclStmt:
		for _, d := range v.Declarations {
			if vd, ok := d.(*graph.VariableDecl); ok {
				if vd.Initializer != nil {
					return entryOf(vd.Initializer)
				}
				return vd
			}
		}
		return nil
	case *graph.IfStmt:
		return entryOf(v.Condition)
	case *graph.WhileStmt:
		return entryOf(v.Condition)
	case *graph.DoStmt:
		if e := entryOf(v.Body); e != nil {
			return e
		}
		return entryOf(v.Condition)
	case *graph.BinaryOperator:
		if e := entryOf(v.Lhs); e != nil {
			return e
		}
		return v
	case *graph.UnaryOperator:
		if e := entryOf(v.Operand); e != nil {
			return e
		}
		return v
	case *graph.MemberCallExpr:
		if e := entryOf(v.Operand); e != nil {
			return e
		}
		if len(v.Arguments) > 0 {
			return entryOf(v.Arguments[0])
		}
		return v
	case *graph.CallExpr:
		if v.Callee != nil {
			return entryOf(v.Callee)
		}
		if len(v.Arguments) > 0 {
			return entryOf(v.Arguments[0])
		}
		return v
	case *graph.MemberExpr:
		if e := entryOf(v.Operand); e != nil {
			return e
		}
		return v
	case *graph.CastExpr:
		if e := entryOf(v.Operand); e != nil {
			return e
		}
		return v
	case *graph.ArraySubscriptExpr:
		if e := entryOf(v.Array); e != nil {
			return e
		}
		return v
	case *graph.ConditionalExpr:
		return entryOf(v.Condition)
	}
	return n
}
