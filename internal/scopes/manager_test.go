package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/graph"
)

func TestEnterLeave(t *testing.T) {
	m := NewManager()
	fn := graph.NewFunctionDecl("main", "", nil)

	m.EnterScope(graph.FunctionScope, fn)
	assert.Same(t, fn, m.CurrentScope().Node)
	assert.True(t, m.InFunction())

	m.LeaveScope(fn)
	assert.Same(t, m.GlobalScope(), m.CurrentScope())
	require.NoError(t, m.Finish())
}

func TestLeaveMismatchPanics(t *testing.T) {
	m := NewManager()
	fn := graph.NewFunctionDecl("main", "", nil)
	other := graph.NewFunctionDecl("other", "", nil)
	m.EnterScope(graph.FunctionScope, fn)

	assert.PanicsWithError(t,
		(&ImbalanceError{Op: "LeaveScope", Want: other, Got: fn}).Error(),
		func() { m.LeaveScope(other) })
}

func TestLeaveGlobalPanics(t *testing.T) {
	m := NewManager()
	assert.Panics(t, func() { m.LeaveScope(nil) })
}

func TestFinishReportsOpenScopes(t *testing.T) {
	m := NewManager()
	fn := graph.NewFunctionDecl("main", "", nil)
	m.EnterScope(graph.FunctionScope, fn)

	err := m.Finish()
	require.Error(t, err)
	var imb *ImbalanceError
	require.ErrorAs(t, err, &imb)
	assert.Same(t, fn, imb.Got)
}

func TestShadowing(t *testing.T) {
	m := NewManager()
	fn := graph.NewFunctionDecl("f", "", nil)
	m.EnterScope(graph.FunctionScope, fn)

	outer := graph.NewVariableDecl("x", "int x;", nil)
	m.AddDeclaration(outer)

	block := graph.NewBlock("{}", nil)
	m.EnterScope(graph.BlockScope, block)
	inner := graph.NewVariableDecl("x", "float x;", nil)
	m.AddDeclaration(inner)

	ds := m.Resolve(nil, "x", "::")
	require.Len(t, ds, 1)
	assert.Same(t, inner, ds[0])

	m.LeaveScope(block)
	ds = m.Resolve(nil, "x", "::")
	require.Len(t, ds, 1)
	assert.Same(t, outer, ds[0])

	m.LeaveScope(fn)
}

func TestQualifiedResolve(t *testing.T) {
	m := NewManager()

	rec := graph.NewRecordDecl("A", "class", "", nil)
	m.EnterScope(graph.RecordScope, rec)
	method := graph.NewMethodDecl("f", "", nil, rec)
	m.AddDeclaration(method)
	m.LeaveScope(rec)

	free := graph.NewFunctionDecl("f", "", nil)
	m.AddDeclaration(free)

	t.Run("qualified picks the record member", func(t *testing.T) {
		ds := m.Resolve(nil, "A::f", "::")
		require.Len(t, ds, 1)
		assert.Same(t, method, ds[0])
	})

	t.Run("plain picks the free function", func(t *testing.T) {
		ds := m.Resolve(nil, "f", "::")
		require.Len(t, ds, 1)
		assert.Same(t, graph.ValueDeclaration(free), ds[0])
	})

	t.Run("unknown qualifier misses", func(t *testing.T) {
		assert.Empty(t, m.Resolve(nil, "B::f", "::"))
	})
}

func TestNamespaceNesting(t *testing.T) {
	m := NewManager()

	ns := graph.NewNamespaceDecl("outer", "", nil)
	m.EnterScope(graph.NamespaceScope, ns)
	rec := graph.NewRecordDecl("A", "class", "", nil)
	m.EnterScope(graph.RecordScope, rec)

	assert.Equal(t, "outer::A", m.CurrentNamePrefix("::"))
	assert.Equal(t, "outer::A::f", m.Qualify("f", "::"))
	assert.True(t, m.InRecord())
	assert.Same(t, rec, m.CurrentRecord())

	method := graph.NewMethodDecl("f", "", nil, rec)
	m.AddDeclaration(method)

	m.LeaveScope(rec)
	m.LeaveScope(ns)

	ds := m.Resolve(nil, "outer::A::f", "::")
	require.Len(t, ds, 1)
	assert.Same(t, graph.ValueDeclaration(method), ds[0])
}

func TestInRecordStopsAtFunction(t *testing.T) {
	m := NewManager()
	rec := graph.NewRecordDecl("A", "class", "", nil)
	m.EnterScope(graph.RecordScope, rec)
	assert.True(t, m.InRecord())

	method := graph.NewMethodDecl("f", "", nil, rec)
	m.EnterScope(graph.FunctionScope, method)
	assert.False(t, m.InRecord(), "a body inside a method is function context")
	assert.True(t, m.InFunction())
	assert.Same(t, rec, m.CurrentRecord())

	m.LeaveScope(method)
	m.LeaveScope(rec)
}

func TestLabels(t *testing.T) {
	m := NewManager()
	fn := graph.NewFunctionDecl("f", "", nil)
	m.EnterScope(graph.FunctionScope, fn)

	l := graph.NewLabelStmt("retry", "retry:", nil)
	m.AddLabel(l)

	block := graph.NewBlock("{}", nil)
	m.EnterScope(graph.BlockScope, block)
	assert.Same(t, l, m.LookupLabel("retry"))
	assert.Nil(t, m.LookupLabel("missing"))
	m.LeaveScope(block)
	m.LeaveScope(fn)
}
