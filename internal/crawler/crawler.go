// Package crawler discovers the source files of a project tree that
// some registered frontend can translate.
package crawler

import (
	"io/fs"
	"path/filepath"
	"sort"

	"cpg/internal/frontend"
)

// Crawler scans a directory for source files.
type Crawler struct {
	registry *frontend.Registry
	ignored  []string
}

// New creates a crawler that claims the extensions of the registry's
// frontends and skips the ignored directory names.
func New(registry *frontend.Registry, ignored []string) *Crawler {
	if ignored == nil {
		ignored = []string{".git", "vendor", "node_modules", "testdata"}
	}
	return &Crawler{registry: registry, ignored: ignored}
}

// Discover walks the root directory and returns the supported files in
// deterministic order. Unsupported files are silently skipped; walking
// errors abort the scan.
func (c *Crawler) Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if c.registry.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
