package passes

import (
	"context"

	"cpg/internal/graph"
)

// FilenameMapper stamps every node with the file its unit was parsed
// from. Nodes spliced in from included headers already carry their own
// location and are left alone.
type FilenameMapper struct{}

func NewFilenameMapper() *FilenameMapper { return &FilenameMapper{} }

func (p *FilenameMapper) Name() string { return "FilenameMapper" }

func (p *FilenameMapper) Run(_ context.Context, pc *Context) error {
	for _, unit := range pc.Units {
		file := unit.Name
		graph.Walk(unit, func(n graph.Node) bool {
			b := n.Base()
			if b.Location == nil {
				b.Location = &graph.PhysicalLocation{File: file}
			} else if b.Location.File == "" {
				b.Location.File = file
			}
			return true
		})
	}
	return nil
}
