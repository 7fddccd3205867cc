package gosrc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/graph"
)

func TestParseGoFile(t *testing.T) {
	f := New()
	res, err := f.Parse(context.Background(), filepath.Join("testdata", "store.go.txt"))
	require.NoError(t, err)

	require.Len(t, res.Unit.Declarations, 1)
	ns, ok := res.Unit.Declarations[0].(*graph.NamespaceDecl)
	require.True(t, ok)
	assert.Equal(t, "store", ns.Name)

	var cache *graph.RecordDecl
	var newCache *graph.FunctionDecl
	for _, d := range ns.Declarations {
		switch v := d.(type) {
		case *graph.RecordDecl:
			cache = v
		case *graph.FunctionDecl:
			newCache = v
		}
	}

	t.Run("struct becomes record", func(t *testing.T) {
		require.NotNil(t, cache)
		assert.Equal(t, "Cache", cache.Name)
		require.Len(t, cache.Fields, 2)
		assert.Equal(t, "size", cache.Fields[0].Name)
		assert.Equal(t, "int", cache.Fields[0].Type.Name)
	})

	t.Run("method attaches to receiver record", func(t *testing.T) {
		require.NotNil(t, cache)
		require.Len(t, cache.Methods, 1)
		m := cache.Methods[0]
		assert.Equal(t, "Full", m.Name)
		assert.Same(t, cache, m.Record)
		assert.True(t, m.IsDefinition)
	})

	t.Run("free function with body", func(t *testing.T) {
		require.NotNil(t, newCache)
		assert.Equal(t, "NewCache", newCache.Name)
		require.Len(t, newCache.Parameters, 1)
		assert.Equal(t, "limit", newCache.Parameters[0].Name)

		loops := graph.Collect(newCache, func(n graph.Node) bool {
			_, ok := n.(*graph.ForStmt)
			return ok
		})
		assert.Len(t, loops, 1)
	})

	t.Run("composite literal becomes construction", func(t *testing.T) {
		ctors := graph.Collect(newCache, func(n graph.Node) bool {
			c, ok := n.(*graph.ConstructExpr)
			return ok && c.Name == "Cache"
		})
		assert.Len(t, ctors, 1)
	})
}
