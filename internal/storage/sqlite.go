package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cpg/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			kind TEXT,
			name TEXT,
			file TEXT,
			start_line INTEGER,
			start_col INTEGER,
			end_line INTEGER,
			end_col INTEGER,
			code TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			from_id INTEGER,
			to_id INTEGER,
			label TEXT,
			idx INTEGER,
			PRIMARY KEY (from_id, to_id, label, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_label ON edges(label);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveUnits walks the units, upserting every reachable node and its
// outgoing edges in one transaction. Edges to nodes outside the walk
// (resolved targets in other units) are included; their endpoint rows
// come from that unit's own walk.
func (s *SQLiteStore) SaveUnits(ctx context.Context, units []*graph.TranslationUnitDecl) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (id, kind, name, file, start_line, start_col, end_line, end_col, code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			name=excluded.name,
			file=excluded.file,
			start_line=excluded.start_line,
			start_col=excluded.start_col,
			end_line=excluded.end_line,
			end_col=excluded.end_col,
			code=excluded.code
	`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (from_id, to_id, label, idx) VALUES (?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, label, idx) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	seen := map[*graph.NodeBase]bool{}
	for _, unit := range units {
		var walkErr error
		graph.Walk(unit, func(n graph.Node) bool {
			b := n.Base()
			if seen[b] {
				return false
			}
			seen[b] = true

			var file string
			var region graph.Region
			if b.Location != nil {
				file = b.Location.File
				region = b.Location.Region
			}
			if _, err := nodeStmt.Exec(b.ID, kindOf(n), b.Name, file,
				region.StartLine, region.StartColumn, region.EndLine, region.EndColumn, b.Code); err != nil {
				walkErr = err
				return false
			}
			for _, e := range b.Outgoing() {
				if _, err := edgeStmt.Exec(e.From.Base().ID, e.To.Base().ID, string(e.Label), e.Index); err != nil {
					walkErr = err
					return false
				}
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) CountNodes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountEdges(ctx context.Context, label graph.Label) (int, error) {
	var n int
	var err error
	if label == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges WHERE label = ?", string(label)).Scan(&n)
	}
	return n, err
}

func (s *SQLiteStore) NodeIDsInFile(ctx context.Context, file string) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM nodes WHERE file = ? ORDER BY id", file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan node id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// kindOf names the node variant for the kind column.
func kindOf(n graph.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*graph.")
}
