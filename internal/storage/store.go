package storage

import (
	"context"

	"cpg/internal/graph"
)

// Store persists a finished graph and answers the verification queries
// the export command runs afterwards.
type Store interface {
	// SaveUnits upserts every node and edge reachable from the units.
	SaveUnits(ctx context.Context, units []*graph.TranslationUnitDecl) error

	// CountNodes returns the number of stored nodes.
	CountNodes(ctx context.Context) (int, error)

	// CountEdges returns the number of stored edges with the label, or
	// all edges when label is empty.
	CountEdges(ctx context.Context, label graph.Label) (int, error)

	// NodeIDsInFile returns the IDs of nodes located in the file.
	NodeIDsInFile(ctx context.Context, file string) ([]uint64, error)

	Close() error
}
