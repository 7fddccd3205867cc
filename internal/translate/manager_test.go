package translate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/frontend"
	"cpg/internal/frontend/cxx"
	"cpg/internal/frontend/pysrc"
	"cpg/internal/graph"
	"cpg/internal/passes"
)

func testRegistry() *frontend.Registry {
	r := frontend.NewRegistry()
	r.Register(cxx.Factory())
	r.Register(pysrc.Factory())
	return r
}

func TestBuildMixedLanguages(t *testing.T) {
	m := NewManager(testRegistry(), WithPasses([]passes.Pass{}))
	res, err := m.Build(context.Background(), []string{
		filepath.Join("testdata", "util.c"),
		filepath.Join("testdata", "util.py"),
	})
	require.NoError(t, err)

	require.Len(t, res.Units, 2)
	require.Len(t, res.Scopes, 2)
	assert.Equal(t, 2, res.Report.Parsed)
	assert.Empty(t, res.Report.Skipped)

	for _, u := range res.Units {
		fns := graph.Collect(u, func(n graph.Node) bool {
			fn, ok := n.(*graph.FunctionDecl)
			return ok && fn.Name == "twice"
		})
		assert.Len(t, fns, 1, u.Name)
	}
}

func TestBuildSkipsUnsupportedFiles(t *testing.T) {
	m := NewManager(testRegistry(), WithPasses([]passes.Pass{}))
	res, err := m.Build(context.Background(), []string{
		filepath.Join("testdata", "util.c"),
		filepath.Join("testdata", "notes.txt"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Parsed)
	require.Len(t, res.Report.Skipped, 1)
	assert.Equal(t, filepath.Join("testdata", "notes.txt"), res.Report.Skipped[0].File)

	var terr *frontend.TranslationError
	require.ErrorAs(t, res.Report.Skipped[0].Reason, &terr)
}

func TestBuildFailsWithoutAnyUnit(t *testing.T) {
	m := NewManager(testRegistry(), WithPasses([]passes.Pass{}))
	_, err := m.Build(context.Background(), []string{
		filepath.Join("testdata", "notes.txt"),
	})
	require.Error(t, err)
}

func TestBuildStrictModeFailsFast(t *testing.T) {
	m := NewManager(testRegistry(), WithStrict(true), WithPasses([]passes.Pass{}))
	_, err := m.Build(context.Background(), []string{
		filepath.Join("testdata", "util.c"),
		filepath.Join("testdata", "notes.txt"),
	})
	require.Error(t, err)

	var terr *frontend.TranslationError
	assert.ErrorAs(t, err, &terr)
}

func TestDelimitersPerLanguage(t *testing.T) {
	m := NewManager(testRegistry(), WithPasses([]passes.Pass{}))
	res, err := m.Build(context.Background(), []string{
		filepath.Join("testdata", "util.c"),
		filepath.Join("testdata", "util.py"),
	})
	require.NoError(t, err)

	pc := passes.NewContext(res.Units, res.Scopes)
	m.delimiters(pc)
	assert.Equal(t, "::", pc.Delimiter(res.Units[0]))
	assert.Equal(t, ".", pc.Delimiter(res.Units[1]))
}
