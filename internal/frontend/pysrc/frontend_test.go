package pysrc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/graph"
)

func TestParsePythonFile(t *testing.T) {
	f := New()
	res, err := f.Parse(context.Background(), filepath.Join("testdata", "shapes.py"))
	require.NoError(t, err)

	records := map[string]*graph.RecordDecl{}
	var describe *graph.FunctionDecl
	for _, d := range res.Unit.Declarations {
		switch v := d.(type) {
		case *graph.RecordDecl:
			records[v.Name] = v
		case *graph.FunctionDecl:
			describe = v
		}
	}

	t.Run("class becomes record with field and method", func(t *testing.T) {
		shape := records["Shape"]
		require.NotNil(t, shape)
		assert.Equal(t, "class", shape.Kind)
		require.Len(t, shape.Fields, 1)
		assert.Equal(t, "kind", shape.Fields[0].Name)
		require.Len(t, shape.Methods, 1)
		assert.Equal(t, "area", shape.Methods[0].Name)
		assert.Same(t, shape, shape.Methods[0].Record)
	})

	t.Run("init becomes constructor", func(t *testing.T) {
		square := records["Square"]
		require.NotNil(t, square)
		require.Len(t, square.Constructors, 1)
		c := square.Constructors[0]
		assert.False(t, c.Implicit)
		require.Len(t, c.Parameters, 2)
		assert.Equal(t, "self", c.Parameters[0].Name)
		assert.Equal(t, "side", c.Parameters[1].Name)
		assert.Equal(t, "int", c.Parameters[1].Type.Name)
		require.Len(t, square.SuperTypes, 1)
		assert.Equal(t, "Shape", square.SuperTypes[0].Name)
	})

	t.Run("empty class gets implicit constructor", func(t *testing.T) {
		marker := records["Marker"]
		require.NotNil(t, marker)
		require.Len(t, marker.Constructors, 1)
		assert.True(t, marker.Constructors[0].Implicit)
	})

	t.Run("function with annotations and default", func(t *testing.T) {
		require.NotNil(t, describe)
		assert.Equal(t, "str", describe.ReturnType.Name)
		require.Len(t, describe.Parameters, 2)
		assert.True(t, describe.Parameters[0].Type.IsUnknown())
		scale := describe.Parameters[1]
		assert.Equal(t, "int", scale.Type.Name)
		require.NotNil(t, scale.Default)
	})

	t.Run("elif chains as nested conditional", func(t *testing.T) {
		ifs := graph.Collect(describe, func(n graph.Node) bool {
			_, ok := n.(*graph.IfStmt)
			return ok
		})
		require.Len(t, ifs, 2)
		outer := ifs[0].(*graph.IfStmt)
		nested, ok := outer.Else.(*graph.IfStmt)
		require.True(t, ok)
		assert.NotNil(t, nested.Else)
	})

	t.Run("method call on attribute", func(t *testing.T) {
		calls := graph.Collect(describe, func(n graph.Node) bool {
			c, ok := n.(*graph.MemberCallExpr)
			return ok && c.Name == "area"
		})
		assert.Len(t, calls, 1)
	})

	t.Run("while body rewrites its counter", func(t *testing.T) {
		loops := graph.Collect(describe, func(n graph.Node) bool {
			_, ok := n.(*graph.WhileStmt)
			return ok
		})
		require.Len(t, loops, 1)
		writes := graph.Collect(loops[0], func(n graph.Node) bool {
			r, ok := n.(*graph.DeclaredReference)
			return ok && r.Name == "total" && r.Access == "write"
		})
		assert.Len(t, writes, 1)
	})
}
