package passes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/ctype"
	"cpg/internal/frontend/cxx"
	"cpg/internal/graph"
)

// buildContext parses the fixtures with the C/C++ frontend and runs the
// canonical pipeline over them.
func buildContext(t *testing.T, files ...string) *Context {
	t.Helper()
	ctype.DefaultRegistry.Reset()
	var units []*graph.TranslationUnitDecl
	var scopes []*graph.Scope
	for _, f := range files {
		fe := cxx.New()
		res, err := fe.Parse(context.Background(), filepath.Join("testdata", f))
		require.NoError(t, err)
		units = append(units, res.Unit)
		scopes = append(scopes, res.Scope)
	}
	pc := NewContext(units, scopes)
	for _, tm := range Run(context.Background(), pc, Canonical()) {
		require.NoError(t, tm.Err, tm.Pass)
	}
	return pc
}

func findFunction(pc *Context, name string) *graph.FunctionDecl {
	for _, unit := range pc.Units {
		for _, c := range callablesOf(unit) {
			if c.fn.Name == name || c.fn.LocalName("::") == name {
				return c.fn
			}
		}
	}
	return nil
}

func refsNamed(n graph.Node, name string) []*graph.DeclaredReference {
	var out []*graph.DeclaredReference
	graph.Walk(n, func(n graph.Node) bool {
		if ref, ok := n.(*graph.DeclaredReference); ok && ref.Name == name {
			out = append(out, ref)
		}
		return true
	})
	return out
}

func TestEOGShortCircuit(t *testing.T) {
	pc := buildContext(t, "flow.c")
	fn := findFunction(pc, "check")
	require.NotNil(t, fn)

	var op *graph.BinaryOperator
	graph.Walk(fn, func(n graph.Node) bool {
		if b, ok := n.(*graph.BinaryOperator); ok && b.Operator == "&&" {
			op = b
		}
		return true
	})
	require.NotNil(t, op)
	lhs, ok := op.Lhs.(*graph.DeclaredReference)
	require.True(t, ok)
	rhs, ok := op.Rhs.(*graph.DeclaredReference)
	require.True(t, ok)

	// The left operand's exits split: the right operand under true, the
	// join at the operator node under false.
	var toRhs, toJoin *graph.Edge
	for _, e := range lhs.Base().Outgoing() {
		if e.Label != graph.EOG {
			continue
		}
		switch e.To {
		case graph.Node(rhs):
			toRhs = e
		case graph.Node(op):
			toJoin = e
		}
	}
	require.NotNil(t, toRhs)
	require.NotNil(t, toJoin)
	require.NotNil(t, toRhs.Branch)
	require.NotNil(t, toJoin.Branch)
	assert.True(t, *toRhs.Branch)
	assert.False(t, *toJoin.Branch)

	// The right operand falls into the join unconditionally.
	assert.Contains(t, graph.EOGSuccessors(rhs), graph.Node(op))
}

func TestEOGLoopBackEdge(t *testing.T) {
	pc := buildContext(t, "flow.c")
	fn := findFunction(pc, "sum")
	require.NotNil(t, fn)

	var loop *graph.WhileStmt
	graph.Walk(fn, func(n graph.Node) bool {
		if w, ok := n.(*graph.WhileStmt); ok {
			loop = w
		}
		return true
	})
	require.NotNil(t, loop)

	// The body's last evaluation loops back to the condition's entry.
	entry := entryOf(loop.Condition)
	require.NotNil(t, entry)
	preds := graph.EOGPredecessors(entry)
	assert.Greater(t, len(preds), 1, "condition entry needs a back edge besides the sequential one")
}

func TestDFGReachingWrites(t *testing.T) {
	pc := buildContext(t, "flow.c")
	fn := findFunction(pc, "sum")
	require.NotNil(t, fn)

	var decl *graph.VariableDecl
	graph.Walk(fn, func(n graph.Node) bool {
		if v, ok := n.(*graph.VariableDecl); ok && v.Name == "total" {
			decl = v
		}
		return true
	})
	require.NotNil(t, decl)

	// The initializer's value flows into the declaration.
	assert.Contains(t, graph.DFGPredecessors(decl), graph.Node(decl.Initializer))

	// Both the initializer and the loop assignment reach every read:
	// the loop may run zero or more times.
	for _, ref := range refsNamed(fn, "total") {
		if ref.Access == "write" {
			continue
		}
		preds := graph.DFGPredecessors(ref)
		require.Len(t, preds, 2, "read at %v", ref.Location)
		assert.Contains(t, preds, graph.Node(decl))
	}
}

func TestVariableShadowing(t *testing.T) {
	pc := buildContext(t, "shapes.cpp")
	fn := findFunction(pc, "shadow")
	require.NotNil(t, fn)

	var inner *graph.VariableDecl
	graph.Walk(fn, func(n graph.Node) bool {
		v, ok := n.(*graph.VariableDecl)
		if !ok || v.Name != "x" {
			return true
		}
		if lit, ok := v.Initializer.(*graph.Literal); ok && lit.Value == int64(2) {
			inner = v
		}
		return true
	})
	require.NotNil(t, inner)

	refs := refsNamed(fn, "x")
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		assert.Same(t, inner, ref.Refers, "the inner declaration shadows the outer one")
	}
}

func TestMemberCallVirtualDispatch(t *testing.T) {
	pc := buildContext(t, "shapes.cpp")
	fn := findFunction(pc, "measure")
	require.NotNil(t, fn)

	var call *graph.MemberCallExpr
	graph.Walk(fn, func(n graph.Node) bool {
		if c, ok := n.(*graph.MemberCallExpr); ok && c.Name == "area" {
			call = c
		}
		return true
	})
	require.NotNil(t, call)

	// Static type Shape plus the override in Square.
	targets := graph.InvokesTargets(call)
	require.Len(t, targets, 2)
	names := map[string]bool{}
	for _, m := range targets {
		names[m.Name] = true
	}
	assert.True(t, names["area"])
	assert.False(t, call.Unresolved)
}

func TestSuperClassEdges(t *testing.T) {
	pc := buildContext(t, "shapes.cpp")
	var square *graph.RecordDecl
	for _, unit := range pc.Units {
		graph.Walk(unit, func(n graph.Node) bool {
			if r, ok := n.(*graph.RecordDecl); ok && r.Name == "Square" {
				square = r
			}
			return true
		})
	}
	require.NotNil(t, square)
	supers := graph.SuperRecords(square)
	require.Len(t, supers, 1)
	assert.Equal(t, "Shape", supers[0].Name)
}

func TestNamespaceMergeAndQualifiedCall(t *testing.T) {
	pc := buildContext(t, "math_a.cpp", "math_b.cpp")

	// The first occurrence of the namespace collects the declarations of
	// the later ones.
	var homes []*graph.NamespaceDecl
	for _, unit := range pc.Units {
		for _, d := range unit.Declarations {
			if ns, ok := d.(*graph.NamespaceDecl); ok && ns.Name == "math" {
				homes = append(homes, ns)
			}
		}
	}
	require.Len(t, homes, 2)
	assert.Len(t, homes[0].Declarations, 2)
	assert.Empty(t, homes[1].Declarations)

	fn := findFunction(pc, "use")
	require.NotNil(t, fn)
	var call *graph.CallExpr
	graph.Walk(fn, func(n graph.Node) bool {
		if c, ok := n.(*graph.CallExpr); ok {
			call = c
		}
		return true
	})
	require.NotNil(t, call)
	targets := graph.InvokesTargets(call)
	require.Len(t, targets, 1)
	assert.Equal(t, "add", targets[0].LocalName("::"))
}

func TestCallResolution(t *testing.T) {
	pc := buildContext(t, "overloads.cpp")
	fn := findFunction(pc, "run")
	require.NotNil(t, fn)

	calls := map[string]*graph.CallExpr{}
	graph.Walk(fn, func(n graph.Node) bool {
		if c, ok := n.(*graph.CallExpr); ok {
			calls[c.Name] = c
		}
		return true
	})

	t.Run("variadic binds extra arguments", func(t *testing.T) {
		c := calls["logf"]
		require.NotNil(t, c)
		targets := graph.InvokesTargets(c)
		require.Len(t, targets, 1)
		assert.True(t, targets[0].IsVariadic())
		assert.False(t, c.Unresolved)
	})

	t.Run("overloads select by arity", func(t *testing.T) {
		var oneArg, twoArg *graph.CallExpr
		graph.Walk(fn, func(n graph.Node) bool {
			if c, ok := n.(*graph.CallExpr); ok && c.Name == "scale" {
				if len(c.Arguments) == 1 {
					oneArg = c
				} else {
					twoArg = c
				}
			}
			return true
		})
		require.NotNil(t, oneArg)
		require.NotNil(t, twoArg)

		one := graph.InvokesTargets(oneArg)
		require.Len(t, one, 1)
		assert.Equal(t, 1, one[0].FixedParameterCount())

		two := graph.InvokesTargets(twoArg)
		require.Len(t, two, 1)
		assert.Equal(t, 2, two[0].FixedParameterCount())
	})

	t.Run("trailing default fills the missing argument", func(t *testing.T) {
		c := calls["pad"]
		require.NotNil(t, c)
		targets := graph.InvokesTargets(c)
		require.Len(t, targets, 1)
		assert.Equal(t, "pad", targets[0].Name)
	})
}

func TestCallGraphClosure(t *testing.T) {
	pc := buildContext(t, "calls.c")
	for _, tm := range Run(context.Background(), pc, []Pass{NewCallGraphClosure()}) {
		require.NoError(t, tm.Err)
	}

	top := findFunction(pc, "top")
	mid := findFunction(pc, "mid")
	leaf := findFunction(pc, "leaf")
	require.NotNil(t, top)
	require.NotNil(t, mid)
	require.NotNil(t, leaf)

	assert.True(t, graph.HasEdge(top, graph.Reaches, mid))
	assert.True(t, graph.HasEdge(top, graph.Reaches, leaf), "closure carries through intermediates")
	assert.True(t, graph.HasEdge(mid, graph.Reaches, leaf))
	assert.False(t, graph.HasEdge(mid, graph.Reaches, top))
}

func TestFilenameMapperFillsLocations(t *testing.T) {
	pc := buildContext(t, "flow.c")
	missing := 0
	graph.Walk(pc.Units[0], func(n graph.Node) bool {
		loc := n.Base().Location
		if loc == nil || loc.File == "" {
			missing++
		}
		return true
	})
	assert.Zero(t, missing)
}
