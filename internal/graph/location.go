package graph

import "fmt"

// Region is a span of source text with 1-based, inclusive coordinates.
type Region struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// PhysicalLocation ties a region to the file it was parsed from.
type PhysicalLocation struct {
	File   string `json:"file"` // file URI or absolute path
	Region Region `json:"region"`
}

func NewLocation(file string, startLine, startCol, endLine, endCol int) *PhysicalLocation {
	return &PhysicalLocation{
		File: file,
		Region: Region{
			StartLine:   startLine,
			StartColumn: startCol,
			EndLine:     endLine,
			EndColumn:   endCol,
		},
	}
}

func (l *PhysicalLocation) String() string {
	if l == nil {
		return "<no location>"
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.Region.StartLine, l.Region.StartColumn, l.Region.EndLine, l.Region.EndColumn)
}
