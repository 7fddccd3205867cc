package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/ctype"
)

func TestNodeIdentity(t *testing.T) {
	a := NewVariableDecl("x", "int x;", nil)
	b := NewVariableDecl("x", "int x;", nil)

	assert.NotEqual(t, a.ID, b.ID, "every node gets a fresh id")
	assert.Equal(t, "x", a.Name)
}

func TestLocalName(t *testing.T) {
	f := NewFunctionDecl("std::vector::push_back", "", nil)
	assert.Equal(t, "push_back", f.LocalName("::"))

	g := NewFunctionDecl("main", "", nil)
	assert.Equal(t, "main", g.LocalName("::"))
}

func TestEdges(t *testing.T) {
	t.Run("add and query", func(t *testing.T) {
		ref := NewDeclaredReference("x", "x", nil)
		decl := NewVariableDecl("x", "int x;", nil)

		AddEdge(ref, RefersTo, decl)

		require.True(t, HasEdge(ref, RefersTo, decl))
		targets := RefersToTargets(ref)
		require.Len(t, targets, 1)
		assert.Same(t, decl, targets[0])
	})

	t.Run("disconnect severs both directions", func(t *testing.T) {
		a := NewEmptyStmt(";", nil)
		b := NewEmptyStmt(";", nil)
		c := NewEmptyStmt(";", nil)
		AddEdge(a, EOG, b)
		AddEdge(b, EOG, c)

		Disconnect(b)

		assert.Empty(t, EOGSuccessors(a))
		assert.Empty(t, EOGSuccessors(b))
		assert.Empty(t, EOGPredecessors(c))
	})

	t.Run("invokes resolves callable variants", func(t *testing.T) {
		call := NewCallExpr("f", "f()", nil)
		fn := NewFunctionDecl("f", "void f() {}", nil)
		rec := NewRecordDecl("A", "class", "class A {}", nil)
		m := NewMethodDecl("g", "void g() {}", nil, rec)

		AddEdge(call, Invokes, fn)
		AddEdge(call, Invokes, m)

		targets := InvokesTargets(call)
		require.Len(t, targets, 2)
		assert.Equal(t, "f", targets[0].Base().Name)
		assert.Equal(t, "g", targets[1].Base().Name)
	})
}

func TestRecordDecl(t *testing.T) {
	rec := NewRecordDecl("Point", "struct", "struct Point { ... }", nil)

	require.NotNil(t, rec.This)
	assert.True(t, rec.This.Implicit)
	assert.Equal(t, "Point", rec.This.Type.Name)
	assert.Same(t, rec, rec.This.Type.Record)

	base := NewRecordDecl("Shape", "class", "", nil)
	st := ctype.NewObjectType("Shape")
	st.Record = base
	rec.SuperTypes = append(rec.SuperTypes, st)

	refs := rec.SuperRecordRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "Shape", refs[0].RecordName())
}

func TestFunctionVariadic(t *testing.T) {
	fn := NewFunctionDecl("printf", "", nil)
	fmtParam := NewParameterDecl("format", "const char* format", nil)
	fmtParam.Type = ctype.Parse("const char*", false)
	va := NewParameterDecl("va_args", "...", nil)
	va.Variadic = true
	va.Implicit = true
	fn.Parameters = []*ParameterDecl{fmtParam, va}

	assert.True(t, fn.IsVariadic())
	assert.Equal(t, 1, fn.FixedParameterCount())

	plain := NewFunctionDecl("main", "", nil)
	assert.False(t, plain.IsVariadic())
	assert.Equal(t, 0, plain.FixedParameterCount())
}

func TestPromotions(t *testing.T) {
	rec := NewRecordDecl("A", "class", "", nil)

	t.Run("function to method", func(t *testing.T) {
		fn := NewFunctionDecl("doIt", "void doIt() {}", nil)
		fn.Body = NewBlock("{}", nil)
		fn.IsDefinition = true

		m := MethodFromFunction(fn, rec)

		assert.NotEqual(t, fn.ID, m.ID)
		assert.Same(t, rec, m.Record)
		assert.Same(t, fn.Body, m.Body)
		assert.True(t, m.IsDefinition)
	})

	t.Run("method to constructor", func(t *testing.T) {
		m := NewMethodDecl("A", "A() {}", nil, rec)
		m.IsDefinition = true

		c := ConstructorFromMethod(m)

		assert.Same(t, rec, c.Record)
		require.NotNil(t, c.Type)
		assert.Equal(t, "A", c.Type.Name)
	})

	t.Run("variable to field", func(t *testing.T) {
		v := NewVariableDecl("count", "int count = 0;", nil)
		v.Type = ctype.Parse("int", false)
		v.Initializer = NewLiteral(int64(0), ctype.NewObjectType("int"), "0", nil)

		f := FieldFromVariable(v)

		assert.Equal(t, "count", f.Name)
		assert.Same(t, v.Initializer, f.Initializer)
		assert.Equal(t, "int", f.Type.Name)
	})
}

func TestScopeLookup(t *testing.T) {
	global := NewScope(GlobalScope, nil)
	fnScope := NewScope(FunctionScope, nil)
	global.AddChild(fnScope)
	blockScope := NewScope(BlockScope, nil)
	fnScope.AddChild(blockScope)

	outer := NewVariableDecl("x", "int x;", nil)
	inner := NewVariableDecl("x", "float x;", nil)
	global.Declare(outer)
	blockScope.Declare(inner)

	t.Run("innermost wins", func(t *testing.T) {
		ds := blockScope.Lookup("x")
		require.Len(t, ds, 1)
		assert.Same(t, inner, ds[0])
	})

	t.Run("outer visible where inner absent", func(t *testing.T) {
		ds := fnScope.Lookup("x")
		require.Len(t, ds, 1)
		assert.Same(t, outer, ds[0])
	})

	t.Run("miss", func(t *testing.T) {
		assert.Nil(t, blockScope.Lookup("y"))
	})
}

func TestWalk(t *testing.T) {
	tu := NewTranslationUnit("main.c")
	fn := NewFunctionDecl("main", "int main() { return 0; }", nil)
	body := NewBlock("{ return 0; }", nil)
	ret := NewReturnStmt("return 0;", nil)
	ret.Value = NewLiteral(int64(0), ctype.NewObjectType("int"), "0", nil)
	body.AddStatement(ret)
	fn.Body = body
	fn.IsDefinition = true
	tu.AddDeclaration(fn)

	var kinds []string
	Walk(tu, func(n Node) bool {
		switch n.(type) {
		case *TranslationUnitDecl:
			kinds = append(kinds, "tu")
		case *FunctionDecl:
			kinds = append(kinds, "fn")
		case *Block:
			kinds = append(kinds, "block")
		case *ReturnStmt:
			kinds = append(kinds, "return")
		case *Literal:
			kinds = append(kinds, "literal")
		}
		return true
	})
	assert.Equal(t, []string{"tu", "fn", "block", "return", "literal"}, kinds)

	lits := Collect(tu, func(n Node) bool {
		_, ok := n.(*Literal)
		return ok
	})
	assert.Len(t, lits, 1)
}
