package cxx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/ctype"
	"cpg/internal/frontend"
	"cpg/internal/graph"
)

func parseTestFile(t *testing.T, name string, opts ...Option) *frontend.Result {
	t.Helper()
	ctype.DefaultRegistry.Reset()
	f := New(opts...)
	res, err := f.Parse(context.Background(), filepath.Join("testdata", name))
	require.NoError(t, err)
	require.NotNil(t, res.Unit)
	return res
}

func findFunction(unit *graph.TranslationUnitDecl, name string) *graph.FunctionDecl {
	for _, n := range graph.Collect(unit, func(n graph.Node) bool {
		fn, ok := n.(*graph.FunctionDecl)
		return ok && fn.Name == name
	}) {
		return n.(*graph.FunctionDecl)
	}
	return nil
}

func findRecord(unit *graph.TranslationUnitDecl, name string) *graph.RecordDecl {
	for _, n := range graph.Collect(unit, func(n graph.Node) bool {
		r, ok := n.(*graph.RecordDecl)
		return ok && r.Name == name
	}) {
		return n.(*graph.RecordDecl)
	}
	return nil
}

func TestParseIncludeSplicing(t *testing.T) {
	res := parseTestFile(t, "main.c")

	require.Len(t, res.Unit.Includes, 2)
	assert.Equal(t, filepath.Join("testdata", "point.h"), res.Unit.Includes[0])
	assert.Equal(t, "<stdio.h>", res.Unit.Includes[1])

	// The header's declarations are spliced into the unit.
	rec := findRecord(res.Unit, "Point")
	require.NotNil(t, rec)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "x", rec.Fields[0].Name)
	assert.Equal(t, "int", rec.Fields[0].Type.Name)

	// The prototype from the header and the definition from the source
	// collapse into declarations of the same unit.
	fn := findFunction(res.Unit, "manhattan")
	require.NotNil(t, fn)
	require.Len(t, fn.Parameters, 1)
	assert.Equal(t, "Point", fn.Parameters[0].Type.Name)
}

func TestParseFunctionBody(t *testing.T) {
	res := parseTestFile(t, "main.c")

	var mainFn *graph.FunctionDecl
	for _, d := range res.Unit.Declarations {
		if fn, ok := d.(*graph.FunctionDecl); ok && fn.Name == "main" && fn.IsDefinition {
			mainFn = fn
		}
	}
	require.NotNil(t, mainFn)
	require.NotNil(t, mainFn.Body)

	calls := graph.Collect(mainFn, func(n graph.Node) bool {
		_, ok := n.(*graph.CallExpr)
		return ok
	})
	require.Len(t, calls, 2)
	assert.Equal(t, "manhattan", calls[0].Base().Name)
	assert.Equal(t, "printf", calls[1].Base().Name)

	rets := graph.Collect(mainFn, func(n graph.Node) bool {
		_, ok := n.(*graph.ReturnStmt)
		return ok
	})
	require.Len(t, rets, 1)
}

func TestDocCommentAttachment(t *testing.T) {
	res := parseTestFile(t, "main.c")

	var def *graph.FunctionDecl
	for _, d := range res.Unit.Declarations {
		if fn, ok := d.(*graph.FunctionDecl); ok && fn.Name == "manhattan" && fn.IsDefinition {
			def = fn
		}
	}
	require.NotNil(t, def)
	assert.Equal(t, "Manhattan distance from the origin.", def.Comment)
}

func TestTypedefRegistration(t *testing.T) {
	parseTestFile(t, "main.c")

	expanded := ctype.Parse("size_t_alias", true)
	assert.Equal(t, "unsigned long", expanded.Name)
}

func TestRecordMembersAndReparenting(t *testing.T) {
	res := parseTestFile(t, "shapes.cpp")

	square := findRecord(res.Unit, "Square")
	require.NotNil(t, square)

	t.Run("out-of-line constructor adopts prototype", func(t *testing.T) {
		require.Len(t, square.Constructors, 1)
		c := square.Constructors[0]
		assert.True(t, c.IsDefinition)
		assert.False(t, c.Implicit)
		require.Len(t, c.Parameters, 1)
		assert.Equal(t, "s", c.Parameters[0].Name)
		require.NotNil(t, c.Type)
		assert.Equal(t, "Square", c.Type.Name)
	})

	t.Run("inline method stays a method", func(t *testing.T) {
		require.Len(t, square.Methods, 1)
		m := square.Methods[0]
		assert.Equal(t, "area", m.Name)
		assert.True(t, m.IsDefinition)
		assert.Same(t, square, m.Record)
	})

	t.Run("out-of-line method body lands on prototype", func(t *testing.T) {
		shape := findRecord(res.Unit, "Shape")
		require.NotNil(t, shape)
		require.Len(t, shape.Methods, 1)
		assert.True(t, shape.Methods[0].IsDefinition)
		require.NotNil(t, shape.Methods[0].Body)
	})

	t.Run("default constructor synthesized", func(t *testing.T) {
		empty := findRecord(res.Unit, "Empty")
		require.NotNil(t, empty)
		require.Len(t, empty.Constructors, 1)
		assert.True(t, empty.Constructors[0].Implicit)
		assert.Empty(t, empty.Constructors[0].Parameters)
	})

	t.Run("this member present", func(t *testing.T) {
		require.NotNil(t, square.This)
		assert.True(t, square.This.Implicit)
		assert.Equal(t, "Square", square.This.Type.Name)
	})
}

func TestFunctionPointerDeclarators(t *testing.T) {
	res := parseTestFile(t, "callbacks.c")

	t.Run("in record becomes a field", func(t *testing.T) {
		table := findRecord(res.Unit, "handler_table")
		require.NotNil(t, table)
		require.Len(t, table.Fields, 2)

		onRead := table.Fields[0]
		assert.Equal(t, "on_read", onRead.Name)
		require.NotNil(t, onRead.Type)
		assert.Equal(t, ctype.Function, onRead.Type.Kind)
		assert.True(t, onRead.Type.IsPointer())
		require.Len(t, onRead.Type.Parameters, 2)
	})

	t.Run("in function becomes a variable", func(t *testing.T) {
		install := findFunction(res.Unit, "install")
		require.NotNil(t, install)

		vars := graph.Collect(install, func(n graph.Node) bool {
			v, ok := n.(*graph.VariableDecl)
			return ok && v.Name == "cb"
		})
		require.Len(t, vars, 1)
		v := vars[0].(*graph.VariableDecl)
		assert.Equal(t, ctype.Function, v.Type.Kind)
		assert.True(t, v.Type.IsPointer())
	})
}

func TestVariadicFunction(t *testing.T) {
	res := parseTestFile(t, "logging.c")

	fn := findFunction(res.Unit, "log_msg")
	require.NotNil(t, fn)
	assert.True(t, fn.IsVariadic())
	assert.Equal(t, 1, fn.FixedParameterCount())

	last := fn.Parameters[len(fn.Parameters)-1]
	assert.Equal(t, "va_args", last.Name)
	assert.True(t, last.Implicit)
}

func TestShadowingScopes(t *testing.T) {
	res := parseTestFile(t, "main.c")

	// References carry the scope they were parsed in, so the innermost
	// declaration wins at resolution time.
	refs := graph.Collect(res.Unit, func(n graph.Node) bool {
		r, ok := n.(*graph.DeclaredReference)
		return ok && r.Name == "ax"
	})
	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.NotNil(t, r.Base().Scope)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := frontend.NewRegistry()
	reg.Register(Factory())

	assert.True(t, reg.Supports("x/y/foo.cpp"))
	assert.True(t, reg.Supports("foo.H"))
	assert.False(t, reg.Supports("foo.rs"))

	fe, err := reg.For("a.c")
	require.NoError(t, err)
	assert.Equal(t, "cxx", fe.Language())
}
