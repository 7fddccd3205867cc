package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpg/internal/frontend"
	"cpg/internal/frontend/cxx"
	"cpg/internal/frontend/pysrc"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
}

func TestDiscover(t *testing.T) {
	registry := frontend.NewRegistry()
	registry.Register(func() frontend.Frontend { return cxx.New() })
	registry.Register(func() frontend.Frontend { return pysrc.New() })

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.c"))
	writeFile(t, filepath.Join(root, "sub", "b.py"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "vendor", "c.c"))
	writeFile(t, filepath.Join(root, "testdata", "d.c"))

	c := New(registry, nil)
	files, err := c.Discover(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.c"),
		filepath.Join(root, "sub", "b.py"),
	}, files)
}

func TestDiscoverHonorsCustomIgnoreList(t *testing.T) {
	registry := frontend.NewRegistry()
	registry.Register(func() frontend.Frontend { return cxx.New() })

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.c"))
	writeFile(t, filepath.Join(root, "build", "skip.c"))

	c := New(registry, []string{"build"})
	files, err := c.Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "keep.c")}, files)
}
