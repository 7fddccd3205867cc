package storage

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

func buildFixture(t *testing.T) []*graph.TranslationUnitDecl {
	t.Helper()
	ctype.DefaultRegistry.Reset()
	res, err := cxx.New().Parse(context.Background(), filepath.Join("testdata", "tiny.c"))
	require.NoError(t, err)
	pc := passes.NewContext([]*graph.TranslationUnitDecl{res.Unit}, []*graph.Scope{res.Scope})
	for _, tm := range passes.Run(context.Background(), pc, passes.Canonical()) {
		require.NoError(t, tm.Err, tm.Pass)
	}
	return pc.Units
}

func TestSQLiteStore_SaveUnits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cpg.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	units := buildFixture(t)
	require.NoError(t, store.SaveUnits(ctx, units))

	nodes, err := store.CountNodes(ctx)
	require.NoError(t, err)
	assert.Greater(t, nodes, 10)

	edges, err := store.CountEdges(ctx, "")
	require.NoError(t, err)
	assert.Greater(t, edges, 0)

	eog, err := store.CountEdges(ctx, graph.EOG)
	require.NoError(t, err)
	assert.Greater(t, eog, 0)

	invokes, err := store.CountEdges(ctx, graph.Invokes)
	require.NoError(t, err)
	assert.Greater(t, invokes, 0)

	ids, err := store.NodeIDsInFile(ctx, filepath.Join("testdata", "tiny.c"))
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}

func TestSQLiteStore_SaveUnitsIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cpg.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	units := buildFixture(t)
	require.NoError(t, store.SaveUnits(ctx, units))

	before, err := store.CountNodes(ctx)
	require.NoError(t, err)
	edgesBefore, err := store.CountEdges(ctx, "")
	require.NoError(t, err)

	// A second export of the same graph changes nothing.
	require.NoError(t, store.SaveUnits(ctx, units))

	after, err := store.CountNodes(ctx)
	require.NoError(t, err)
	edgesAfter, err := store.CountEdges(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, edgesBefore, edgesAfter)
}
