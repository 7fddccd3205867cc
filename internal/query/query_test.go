package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/ctype"
	"cpg/internal/frontend/cxx"
	"cpg/internal/graph"
	"cpg/internal/passes"
)

func buildUnit(t *testing.T, name string) *graph.TranslationUnitDecl {
	t.Helper()
	ctype.DefaultRegistry.Reset()
	res, err := cxx.New().Parse(context.Background(), filepath.Join("testdata", name))
	require.NoError(t, err)
	pc := passes.NewContext([]*graph.TranslationUnitDecl{res.Unit}, []*graph.Scope{res.Scope})
	for _, tm := range passes.Run(context.Background(), pc, passes.Canonical()) {
		require.NoError(t, tm.Err, tm.Pass)
	}
	return res.Unit
}

func TestDeclarationsByName(t *testing.T) {
	tu := buildUnit(t, "library.cpp")

	t.Run("overloads share a name", func(t *testing.T) {
		fns := DeclarationsOf[*graph.FunctionDecl](tu, "open")
		assert.Len(t, fns, 2)
	})

	t.Run("record and members", func(t *testing.T) {
		rec := RecordByName(tu, "Book")
		require.NotNil(t, rec)
		assert.NotNil(t, FieldOf(rec, "pages"))
		assert.Nil(t, FieldOf(rec, "missing"))
		assert.Len(t, MethodsOf(rec, "length"), 1)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, DeclarationsByName(tu, "nobody"))
	})
}

func TestBodyStatementAs(t *testing.T) {
	tu := buildUnit(t, "library.cpp")
	fn := FunctionByName(tu, "open")
	require.NotNil(t, fn)
	require.NotNil(t, fn.Body)

	t.Run("matching kind", func(t *testing.T) {
		decl, err := BodyStatementAs[*graph.DeclStmt](fn, 0)
		require.NoError(t, err)
		require.Len(t, decl.Declarations, 1)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		_, err := BodyStatementAs[*graph.ReturnStmt](fn, 0)
		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 0, mismatch.Index)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := BodyStatementAs[*graph.ReturnStmt](fn, 99)
		assert.Error(t, err)
	})
}

func TestCallsTo(t *testing.T) {
	tu := buildUnit(t, "library.cpp")
	rec := RecordByName(tu, "Book")
	require.NotNil(t, rec)
	methods := MethodsOf(rec, "length")
	require.Len(t, methods, 1)

	calls := CallsTo(tu, methods[0])
	assert.Len(t, calls, 2)
}
